// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package gfx

import (
	"fmt"

	"github.com/cobalt-gfx/cobalt/gpu"
)

// LayoutConflictError reports that a command requires a texture
// subresource in a layout other than the one the preceding commands
// leave it in, with no barrier in between to transition it.
type LayoutConflictError struct {
	Texture  gpu.Texture
	Level    int
	Layer    int
	Tracked  gpu.Layout
	Required gpu.Layout
}

func (e *LayoutConflictError) Error() string {
	return fmt.Sprintf("gfx: subresource (level %d, layer %d) in layout %d, command requires %d",
		e.Level, e.Layer, e.Tracked, e.Required)
}

// texState is the tracked state of one texture subresource: the
// access and stage of its most recent unconsumed use, and the layout
// it is currently in. Consuming a barrier zeroes access and stage
// but keeps the layout.
type texState struct {
	access gpu.Access
	stage  gpu.Stage
	layout gpu.Layout
}

// texTable tracks subresource state in insertion order, so that
// derived barrier records are deterministic.
type texTable struct {
	m     map[gpu.Subres]*texState
	order []gpu.Subres
}

func newTexTable() *texTable {
	return &texTable{m: make(map[gpu.Subres]*texState)}
}

func (t *texTable) lookup(s gpu.Subres) *texState { return t.m[s] }

func (t *texTable) set(s gpu.Subres, access gpu.Access, stage gpu.Stage, layout gpu.Layout) {
	if x := t.m[s]; x != nil {
		x.access = access
		x.stage = stage
		x.layout = layout
		return
	}
	t.m[s] = &texState{access, stage, layout}
	t.order = append(t.order, s)
}

// bufState is the tracked state of one buffer.
type bufState struct {
	access gpu.Access
	stage  gpu.Stage
}

type bufTable struct {
	m map[gpu.Buffer]*bufState
}

func newBufTable() *bufTable {
	return &bufTable{m: make(map[gpu.Buffer]*bufState)}
}

func (t *bufTable) lookup(b gpu.Buffer) *bufState { return t.m[b] }

func (t *bufTable) set(b gpu.Buffer, access gpu.Access, stage gpu.Stage) {
	if x := t.m[b]; x != nil {
		x.access = access
		x.stage = stage
		return
	}
	t.m[b] = &bufState{access, stage}
}

// Format resolves the provisional fields of every barrier in the
// list and appends a final barrier that restores each touched
// texture to its initial layout.
//
// It is idempotent: once the list is formatted, calling Format again
// is a no-op until another command is appended. Format fails with a
// *LayoutConflictError when a command requires a subresource in a
// layout that no barrier establishes; the list is left unformatted
// in that case.
func (e *CommandEncoder) Format() error {
	if e.formatted {
		return nil
	}
	if len(e.commands) == 0 {
		e.formatted = true
		return nil
	}
	tex, err := e.resolveBarrierSources()
	if err != nil {
		return err
	}
	e.resolveBarrierDestinations()
	e.restoreInitialLayouts(tex)
	e.formatted = true
	return nil
}

// resolveBarrierSources walks the list front to back filling in the
// source half of every barrier: source stage, source accesses and
// source layouts, taken from the most recent use of each resource.
// A use is consumed by the first barrier that covers it. It returns
// the texture table holding the leftover state of every touched
// subresource.
func (e *CommandEncoder) resolveBarrierSources() (*texTable, error) {
	tex := newTexTable()
	buf := newBufTable()

	for _, cmd := range e.commands {
		b, ok := cmd.(*Barrier)
		if !ok {
			stage := cmd.stage()
			bufAccess := cmd.bufferAccess()
			texAccess := cmd.textureAccess()

			for _, s := range cmd.buffers() {
				buf.set(s.Buffer, bufAccess, stage)
			}
			for _, use := range cmd.textures() {
				if x := tex.lookup(use.sub); x != nil && x.layout != use.layout {
					return nil, &LayoutConflictError{
						Texture:  use.sub.Texture,
						Level:    use.sub.Level,
						Layer:    use.sub.Layer,
						Tracked:  x.layout,
						Required: use.layout,
					}
				}
				tex.set(use.sub, texAccess, stage, use.layout)
			}
			// A pass leaves its attachments in the layouts its
			// pipeline declares, not the ones it required on entry.
			for _, ch := range cmd.layoutChanges() {
				if x := tex.lookup(ch.sub); x != nil {
					x.layout = ch.layout
				}
			}
			continue
		}

		for i := range b.Buffers {
			rec := &b.Buffers[i]
			if x := buf.lookup(rec.Buffer); x != nil {
				b.SrcStage |= x.stage
				rec.SrcAccess = x.access
				x.access = gpu.ANone
				x.stage = gpu.SNone
			}
		}
		for i := range b.Textures {
			rec := &b.Textures[i]
			for _, sub := range rec.Subresources() {
				x := tex.lookup(sub)
				if x == nil {
					continue
				}
				b.SrcStage |= x.stage
				rec.SrcAccess = x.access
				rec.SrcLayout = x.layout
				x.layout = rec.DstLayout
				x.access = gpu.ANone
				x.stage = gpu.SNone
			}
		}
	}
	return tex, nil
}

// resolveBarrierDestinations walks the list back to front filling in
// the destination half of every barrier: destination stage and
// destination accesses, taken from the next use of each resource.
func (e *CommandEncoder) resolveBarrierDestinations() {
	tex := newTexTable()
	buf := newBufTable()

	for i := len(e.commands) - 1; i >= 0; i-- {
		b, ok := e.commands[i].(*Barrier)
		if !ok {
			cmd := e.commands[i]
			stage := cmd.stage()
			bufAccess := cmd.bufferAccess()
			texAccess := cmd.textureAccess()

			for _, s := range cmd.buffers() {
				buf.set(s.Buffer, bufAccess, stage)
			}
			for _, use := range cmd.textures() {
				tex.set(use.sub, texAccess, stage, use.layout)
			}
			continue
		}

		for j := range b.Buffers {
			rec := &b.Buffers[j]
			if x := buf.lookup(rec.Buffer); x != nil {
				b.DstStage |= x.stage
				rec.DstAccess = x.access
				x.access = gpu.ANone
				x.stage = gpu.SNone
			}
		}
		for j := range b.Textures {
			rec := &b.Textures[j]
			for _, sub := range rec.Subresources() {
				x := tex.lookup(sub)
				if x == nil {
					continue
				}
				b.DstStage |= x.stage
				rec.DstAccess = x.access
				x.layout = rec.SrcLayout
				x.access = gpu.ANone
				x.stage = gpu.SNone
			}
		}
	}
}

// restoreInitialLayouts appends one final barrier transitioning
// every subresource whose layout diverged back to its texture's
// initial layout. The barrier's source stage covers every leftover
// use; subresources already resting in their initial layout get no
// record. No barrier is appended when no texture was touched.
func (e *CommandEncoder) restoreInitialLayouts(tex *texTable) {
	if len(tex.order) == 0 {
		return
	}
	var srcStages gpu.Stage
	for _, sub := range tex.order {
		srcStages |= tex.m[sub].stage
	}
	var textures []gpu.TextureAccessInfo
	for _, sub := range tex.order {
		x := tex.m[sub]
		initial := sub.Texture.InitialLayout()
		if x.layout == initial {
			continue
		}
		textures = append(textures, gpu.TextureAccessInfo{
			Texture:   sub.Texture,
			BaseLevel: sub.Level,
			NumLevels: 1,
			BaseLayer: sub.Layer,
			NumLayers: 1,
			SrcAccess: x.access,
			DstAccess: gpu.ANone,
			SrcLayout: x.layout,
			DstLayout: initial,
		})
	}
	e.commands = append(e.commands, &Barrier{
		SrcStage: srcStages,
		DstStage: gpu.SBottomOfPipe,
		Textures: textures,
	})
}
