// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package gfx

import (
	"errors"
	"testing"

	"github.com/cobalt-gfx/cobalt/gpu"
)

func TestFormatClearThenCopy(t *testing.T) {
	tex := newTestTexture(1, 1, gpu.LShaderReadOnly)
	buf := newTestBuffer(64 * 64 * 4)
	enc := New(newTestDevice())

	enc.ClearTexture(gpu.WholeTexture(tex), gpu.ClearValue{})
	enc.CopyTextureToBuffer(gpu.WholeTexture(tex), gpu.WholeBuffer(buf))

	if err := enc.Format(); err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if n := enc.Len(); n != 5 {
		t.Fatalf("Len: want 5 commands, got %d", n)
	}

	b1, ok := enc.commands[0].(*Barrier)
	if !ok {
		t.Fatal("command 0: not a barrier")
	}
	if b1.SrcStage != gpu.STopOfPipe {
		t.Errorf("first barrier SrcStage: want STopOfPipe, got %#x", int(b1.SrcStage))
	}
	if b1.DstStage != gpu.SBottomOfPipe|gpu.SCopy {
		t.Errorf("first barrier DstStage: want SBottomOfPipe|SCopy, got %#x", int(b1.DstStage))
	}
	if n := len(b1.Textures); n != 1 {
		t.Fatalf("first barrier: want 1 texture record, got %d", n)
	}
	rec := &b1.Textures[0]
	if rec.SrcAccess != gpu.ANone || rec.DstAccess != gpu.ACopyWrite {
		t.Errorf("first barrier access: got src %#x, dst %#x", int(rec.SrcAccess), int(rec.DstAccess))
	}
	if rec.SrcLayout != gpu.LShaderReadOnly || rec.DstLayout != gpu.LGeneral {
		t.Errorf("first barrier layouts: got src %d, dst %d", rec.SrcLayout, rec.DstLayout)
	}

	b2, ok := enc.commands[2].(*Barrier)
	if !ok {
		t.Fatal("command 2: not a barrier")
	}
	if b2.SrcStage != gpu.STopOfPipe|gpu.SCopy {
		t.Errorf("second barrier SrcStage: want STopOfPipe|SCopy, got %#x", int(b2.SrcStage))
	}
	if b2.DstStage != gpu.SBottomOfPipe|gpu.SCopy {
		t.Errorf("second barrier DstStage: want SBottomOfPipe|SCopy, got %#x", int(b2.DstStage))
	}
	rec = &b2.Textures[0]
	if rec.SrcAccess != gpu.ACopyWrite {
		t.Errorf("second barrier SrcAccess: want ACopyWrite, got %#x", int(rec.SrcAccess))
	}
	if rec.DstAccess != gpu.ACopyRead|gpu.ACopyWrite {
		t.Errorf("second barrier DstAccess: want ACopyRead|ACopyWrite, got %#x", int(rec.DstAccess))
	}
	if rec.SrcLayout != gpu.LGeneral || rec.DstLayout != gpu.LCopySrc {
		t.Errorf("second barrier layouts: got src %d, dst %d", rec.SrcLayout, rec.DstLayout)
	}
	if n := len(b2.Buffers); n != 1 {
		t.Fatalf("second barrier: want 1 buffer record, got %d", n)
	}
	if b2.Buffers[0].SrcAccess != gpu.ANone {
		t.Errorf("buffer SrcAccess: want ANone, got %#x", int(b2.Buffers[0].SrcAccess))
	}
	if b2.Buffers[0].DstAccess != gpu.ACopyRead|gpu.ACopyWrite {
		t.Errorf("buffer DstAccess: want ACopyRead|ACopyWrite, got %#x", int(b2.Buffers[0].DstAccess))
	}

	b3, ok := enc.commands[4].(*Barrier)
	if !ok {
		t.Fatal("command 4: not a barrier")
	}
	if b3.SrcStage != gpu.SCopy || b3.DstStage != gpu.SBottomOfPipe {
		t.Errorf("final barrier stages: got src %#x, dst %#x", int(b3.SrcStage), int(b3.DstStage))
	}
	if n := len(b3.Textures); n != 1 {
		t.Fatalf("final barrier: want 1 texture record, got %d", n)
	}
	rec = &b3.Textures[0]
	if rec.SrcLayout != gpu.LCopySrc || rec.DstLayout != gpu.LShaderReadOnly {
		t.Errorf("final barrier layouts: got src %d, dst %d", rec.SrcLayout, rec.DstLayout)
	}
	if rec.SrcAccess != gpu.ACopyRead|gpu.ACopyWrite || rec.DstAccess != gpu.ANone {
		t.Errorf("final barrier access: got src %#x, dst %#x", int(rec.SrcAccess), int(rec.DstAccess))
	}
}

func TestFormatIdempotent(t *testing.T) {
	tex := newTestTexture(1, 1, gpu.LShaderReadOnly)
	enc := New(newTestDevice())
	enc.ClearTexture(gpu.WholeTexture(tex), gpu.ClearValue{})

	if err := enc.Format(); err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	n := enc.Len()
	b := *enc.commands[0].(*Barrier)
	if err := enc.Format(); err != nil {
		t.Fatalf("second Format failed: %v", err)
	}
	if enc.Len() != n {
		t.Errorf("second Format changed command count: %d to %d", n, enc.Len())
	}
	b2 := *enc.commands[0].(*Barrier)
	if b.SrcStage != b2.SrcStage || b.DstStage != b2.DstStage {
		t.Error("second Format changed barrier stages")
	}
}

func TestRestingStateCubemap(t *testing.T) {
	// Clearing one face of a cubemap must only transition that
	// face; the other five keep their layout and get no record in
	// the final barrier.
	tex := newTestTexture(1, 6, gpu.LShaderReadOnly)
	enc := New(newTestDevice())
	face := gpu.TextureSlice{Texture: tex, NumLevels: 1, BaseLayer: 2, NumLayers: 1}
	enc.ClearTexture(face, gpu.ClearValue{})

	if err := enc.Format(); err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	last, ok := enc.commands[enc.Len()-1].(*Barrier)
	if !ok {
		t.Fatal("last command: not a barrier")
	}
	if n := len(last.Textures); n != 1 {
		t.Fatalf("final barrier: want 1 record, got %d", n)
	}
	rec := &last.Textures[0]
	if rec.BaseLayer != 2 || rec.NumLayers != 1 || rec.BaseLevel != 0 || rec.NumLevels != 1 {
		t.Errorf("final barrier covers wrong subresource: %+v", rec)
	}
	if rec.DstLayout != tex.InitialLayout() {
		t.Errorf("final barrier DstLayout: want initial layout %d, got %d", tex.InitialLayout(), rec.DstLayout)
	}
}

func TestFaceLayoutIndependence(t *testing.T) {
	// Two faces of one cubemap held in different layouts within a
	// single list: each face's barrier fills derive only from that
	// face's own uses, and the final barrier restores each face from
	// its own layout.
	tex := newTestTexture(1, 6, gpu.LShaderReadOnly)
	buf := newTestBuffer(64 * 64 * 4)
	enc := New(newTestDevice())
	face0 := gpu.TextureSlice{Texture: tex, NumLevels: 1, BaseLayer: 0, NumLayers: 1}
	face1 := gpu.TextureSlice{Texture: tex, NumLevels: 1, BaseLayer: 1, NumLayers: 1}
	enc.ClearTexture(face0, gpu.ClearValue{})
	enc.CopyTextureToBuffer(face1, gpu.WholeBuffer(buf))

	if err := enc.Format(); err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if n := enc.Len(); n != 5 {
		t.Fatalf("Len: want 5 commands, got %d", n)
	}

	// The copy's barrier must not consume the clear: face 1 was
	// never written, so its source half stays pristine.
	b2, ok := enc.commands[2].(*Barrier)
	if !ok {
		t.Fatal("command 2: not a barrier")
	}
	if b2.SrcStage != gpu.STopOfPipe {
		t.Errorf("face 1 barrier SrcStage: want STopOfPipe, got %#x", int(b2.SrcStage))
	}
	if n := len(b2.Textures); n != 1 {
		t.Fatalf("face 1 barrier: want 1 record, got %d", n)
	}
	rec := &b2.Textures[0]
	if rec.BaseLayer != 1 || rec.NumLayers != 1 {
		t.Errorf("face 1 barrier covers wrong subresource: %+v", rec)
	}
	if rec.SrcLayout != gpu.LShaderReadOnly || rec.DstLayout != gpu.LCopySrc {
		t.Errorf("face 1 barrier layouts: got src %d, dst %d", rec.SrcLayout, rec.DstLayout)
	}
	if rec.SrcAccess != gpu.ANone {
		t.Errorf("face 1 barrier SrcAccess picked up face 0's write: %#x", int(rec.SrcAccess))
	}

	last, ok := enc.commands[4].(*Barrier)
	if !ok {
		t.Fatal("command 4: not a barrier")
	}
	if last.SrcStage != gpu.SCopy {
		t.Errorf("final barrier SrcStage: want SCopy, got %#x", int(last.SrcStage))
	}
	if n := len(last.Textures); n != 2 {
		t.Fatalf("final barrier: want 2 records, got %d", n)
	}
	for i := range last.Textures {
		rec := &last.Textures[i]
		if rec.DstLayout != gpu.LShaderReadOnly || rec.DstAccess != gpu.ANone {
			t.Errorf("final record %d destination: %+v", i, rec)
		}
		switch rec.BaseLayer {
		case 0:
			if rec.SrcLayout != gpu.LGeneral || rec.SrcAccess != gpu.ACopyWrite {
				t.Errorf("face 0 restore: got layout %d, access %#x", rec.SrcLayout, int(rec.SrcAccess))
			}
		case 1:
			if rec.SrcLayout != gpu.LCopySrc || rec.SrcAccess != gpu.ACopyRead|gpu.ACopyWrite {
				t.Errorf("face 1 restore: got layout %d, access %#x", rec.SrcLayout, int(rec.SrcAccess))
			}
		default:
			t.Errorf("final record %d covers untouched face %d", i, rec.BaseLayer)
		}
	}
}

func TestGraphicsPassRoundTrip(t *testing.T) {
	// A pass whose pipeline declares Final == the texture's
	// initial layout leaves nothing to restore: the final barrier
	// is still appended but carries no records.
	tex := newTestTexture(1, 1, gpu.LPresent)
	pl := &testGraphicsPipeline{
		pass: gpu.PassLayout{
			Colors: []gpu.AttachmentLayout{{
				Format:  tex.format,
				Samples: 1,
				Load:    gpu.LoadLoad,
				Store:   gpu.StoreStore,
				Initial: gpu.LColorAttachment,
				Final:   gpu.LPresent,
			}},
		},
	}
	enc := New(newTestDevice())
	enc.ClearTexture(gpu.WholeTexture(tex), gpu.ClearValue{})
	p := enc.BeginGraphicsPass([]gpu.Attachment{{View: gpu.WholeTexture(tex)}}, nil, nil, pl)
	p.Draw(3, 1, 0, 0)
	p.End()

	if err := enc.Format(); err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if n := enc.Len(); n != 5 {
		t.Fatalf("Len: want 5 commands, got %d", n)
	}

	b2 := enc.commands[2].(*Barrier)
	rec := &b2.Textures[0]
	if rec.SrcLayout != gpu.LGeneral || rec.DstLayout != gpu.LColorAttachment {
		t.Errorf("pass barrier layouts: got src %d, dst %d", rec.SrcLayout, rec.DstLayout)
	}
	if rec.SrcAccess != gpu.ACopyWrite || rec.DstAccess != gpu.AMemoryRead {
		t.Errorf("pass barrier access: got src %#x, dst %#x", int(rec.SrcAccess), int(rec.DstAccess))
	}
	want := gpu.SBottomOfPipe | gpu.SFragmentShader | gpu.SDSEarly | gpu.SDSLate
	if b2.DstStage != want {
		t.Errorf("pass barrier DstStage: want %#x, got %#x", int(want), int(b2.DstStage))
	}

	last := enc.commands[4].(*Barrier)
	if len(last.Textures) != 0 {
		t.Errorf("final barrier: want no records, got %d", len(last.Textures))
	}
}

func TestComputePassRoundTrip(t *testing.T) {
	tex := newTestTexture(1, 1, gpu.LShaderReadOnly)
	buf := newTestBuffer(1024)
	set := &testDescriptorSet{
		bufs: []gpu.BufferSlice{gpu.WholeBuffer(buf)},
		texs: []gpu.TextureBinding{{Slice: gpu.WholeTexture(tex), Layout: gpu.LGeneral}},
	}
	enc := New(newTestDevice())
	p := enc.BeginComputePass(&testComputePipeline{})
	p.BindDescriptorSets(0, []gpu.DescriptorSet{set})
	p.Dispatch(8, 8, 1)
	p.End()

	if err := enc.Format(); err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if n := enc.Len(); n != 3 {
		t.Fatalf("Len: want 3 commands, got %d", n)
	}

	b1 := enc.commands[0].(*Barrier)
	if b1.DstStage != gpu.SBottomOfPipe|gpu.SComputeShader {
		t.Errorf("barrier DstStage: want SBottomOfPipe|SComputeShader, got %#x", int(b1.DstStage))
	}
	rec := &b1.Textures[0]
	if rec.DstAccess != gpu.ANone {
		t.Errorf("compute barrier DstAccess: want ANone, got %#x", int(rec.DstAccess))
	}
	if rec.SrcLayout != gpu.LShaderReadOnly || rec.DstLayout != gpu.LGeneral {
		t.Errorf("compute barrier layouts: got src %d, dst %d", rec.SrcLayout, rec.DstLayout)
	}
	if len(b1.Buffers) != 1 {
		t.Fatalf("barrier: want 1 buffer record, got %d", len(b1.Buffers))
	}

	last := enc.commands[2].(*Barrier)
	if last.SrcStage != gpu.SComputeShader {
		t.Errorf("final barrier SrcStage: want SComputeShader, got %#x", int(last.SrcStage))
	}
	if len(last.Textures) != 1 || last.Textures[0].DstLayout != gpu.LShaderReadOnly {
		t.Errorf("final barrier does not restore initial layout: %+v", last.Textures)
	}
}

func TestComputeThenSample(t *testing.T) {
	// A compute dispatch writes a storage texture; a later graphics
	// pass samples it. The barrier between the passes must pair the
	// compute write with the fragment read and perform the single
	// General to ShaderReadOnly transition.
	tex := newTestTexture(1, 1, gpu.LGeneral)
	tgt := newTestTexture(1, 1, gpu.LShaderReadOnly)
	storage := &testDescriptorSet{
		texs: []gpu.TextureBinding{{Slice: gpu.WholeTexture(tex), Layout: gpu.LGeneral}},
	}
	sampled := &testDescriptorSet{
		texs: []gpu.TextureBinding{{Slice: gpu.WholeTexture(tex), Layout: gpu.LShaderReadOnly}},
	}
	pl := &testGraphicsPipeline{
		pass: gpu.PassLayout{
			Colors: []gpu.AttachmentLayout{{
				Format:  tgt.format,
				Samples: 1,
				Load:    gpu.LoadClear,
				Store:   gpu.StoreStore,
				Initial: gpu.LColorAttachment,
				Final:   gpu.LShaderReadOnly,
			}},
		},
	}
	enc := New(newTestDevice())
	cp := enc.BeginComputePass(&testComputePipeline{})
	cp.BindDescriptorSets(0, []gpu.DescriptorSet{storage})
	cp.Dispatch(8, 8, 1)
	cp.End()
	gp := enc.BeginGraphicsPass([]gpu.Attachment{{View: gpu.WholeTexture(tgt)}}, nil, nil, pl)
	gp.BindDescriptorSets(0, []gpu.DescriptorSet{sampled})
	gp.Draw(3, 1, 0, 0)
	gp.End()

	if err := enc.Format(); err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if n := enc.Len(); n != 5 {
		t.Fatalf("Len: want 5 commands, got %d", n)
	}

	b2, ok := enc.commands[2].(*Barrier)
	if !ok {
		t.Fatal("command 2: not a barrier")
	}
	if b2.SrcStage != gpu.STopOfPipe|gpu.SComputeShader {
		t.Errorf("pairing barrier SrcStage: want STopOfPipe|SComputeShader, got %#x", int(b2.SrcStage))
	}
	want := gpu.SBottomOfPipe | gpu.SFragmentShader | gpu.SDSEarly | gpu.SDSLate
	if b2.DstStage != want {
		t.Errorf("pairing barrier DstStage: want %#x, got %#x", int(want), int(b2.DstStage))
	}
	var trans []*gpu.TextureAccessInfo
	for i := range b2.Textures {
		rec := &b2.Textures[i]
		if rec.SrcLayout == gpu.LGeneral && rec.DstLayout == gpu.LShaderReadOnly {
			trans = append(trans, rec)
		}
	}
	if len(trans) != 1 {
		t.Fatalf("pairing barrier: want 1 General to ShaderReadOnly record, got %d", len(trans))
	}
	if trans[0].Texture != tex {
		t.Error("pairing barrier transitions the wrong texture")
	}
	if trans[0].SrcAccess != gpu.ANone || trans[0].DstAccess != gpu.AMemoryRead {
		t.Errorf("pairing barrier access: got src %#x, dst %#x", int(trans[0].SrcAccess), int(trans[0].DstAccess))
	}

	last, ok := enc.commands[4].(*Barrier)
	if !ok {
		t.Fatal("command 4: not a barrier")
	}
	if last.SrcStage != gpu.SFragmentShader|gpu.SDSEarly|gpu.SDSLate {
		t.Errorf("final barrier SrcStage: got %#x", int(last.SrcStage))
	}
	if last.DstStage != gpu.SBottomOfPipe {
		t.Errorf("final barrier DstStage: want SBottomOfPipe, got %#x", int(last.DstStage))
	}
	// The render target ends in its initial layout; only the sampled
	// texture needs restoring.
	if n := len(last.Textures); n != 1 {
		t.Fatalf("final barrier: want 1 record, got %d", n)
	}
	rec := &last.Textures[0]
	if rec.Texture != tex || rec.SrcLayout != gpu.LShaderReadOnly || rec.DstLayout != gpu.LGeneral {
		t.Errorf("final barrier does not restore the storage texture: %+v", rec)
	}
}

func TestOrderingPreserved(t *testing.T) {
	tex := newTestTexture(2, 1, gpu.LShaderReadOnly)
	dst := newTestTexture(2, 1, gpu.LShaderReadOnly)
	buf := newTestBuffer(64 * 64 * 4)
	enc := New(newTestDevice())

	enc.ClearTexture(gpu.WholeTexture(tex), gpu.ClearValue{})
	enc.BlitTextures(gpu.WholeTexture(tex), gpu.WholeTexture(dst), gpu.FLinear)
	enc.CopyTextureToBuffer(gpu.WholeTexture(dst), gpu.WholeBuffer(buf))
	enc.UpdateBuffer(buf, 0, make([]byte, 16))

	if err := enc.Format(); err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	var got []Command
	for _, cmd := range enc.commands {
		if _, ok := cmd.(*Barrier); !ok {
			got = append(got, cmd)
		}
	}
	if len(got) != 4 {
		t.Fatalf("want 4 non-barrier commands, got %d", len(got))
	}
	if _, ok := got[0].(*ClearTexture); !ok {
		t.Error("command order changed: ClearTexture not first")
	}
	if _, ok := got[1].(*BlitTextures); !ok {
		t.Error("command order changed: BlitTextures not second")
	}
	if _, ok := got[2].(*CopyTextureToBuffer); !ok {
		t.Error("command order changed: CopyTextureToBuffer not third")
	}
	if _, ok := got[3].(*UpdateBuffer); !ok {
		t.Error("command order changed: UpdateBuffer not fourth")
	}
}

func TestLayoutConflict(t *testing.T) {
	// Two commands requiring the same subresource in different
	// layouts with no barrier between them cannot be scheduled.
	tex := newTestTexture(1, 1, gpu.LShaderReadOnly)
	enc := New(newTestDevice())
	enc.commands = append(enc.commands,
		&ClearTexture{Texture: gpu.WholeTexture(tex), Layout: gpu.LCopyDst},
		&ClearTexture{Texture: gpu.WholeTexture(tex), Layout: gpu.LGeneral},
	)

	err := enc.Format()
	var conflict *LayoutConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("Format: want *LayoutConflictError, got %v", err)
	}
	if conflict.Tracked != gpu.LCopyDst || conflict.Required != gpu.LGeneral {
		t.Errorf("conflict layouts: got tracked %d, required %d", conflict.Tracked, conflict.Required)
	}
	if enc.formatted {
		t.Error("encoder marked formatted after failed Format")
	}
}

func TestFormatEmpty(t *testing.T) {
	enc := New(newTestDevice())
	if err := enc.Format(); err != nil {
		t.Fatalf("Format of empty list failed: %v", err)
	}
	if enc.Len() != 0 {
		t.Errorf("Format of empty list appended commands: %d", enc.Len())
	}
}

func TestBlitTracksBaseLevelOnly(t *testing.T) {
	// A blit reads/writes only the base mip of each slice, so
	// only that level transitions and only that level is
	// restored.
	src := newTestTexture(4, 1, gpu.LShaderReadOnly)
	dst := newTestTexture(4, 1, gpu.LShaderReadOnly)
	enc := New(newTestDevice())
	enc.BlitTextures(
		gpu.TextureSlice{Texture: src, BaseLevel: 0, NumLevels: 1, NumLayers: 1},
		gpu.TextureSlice{Texture: dst, BaseLevel: 1, NumLevels: 1, NumLayers: 1},
		gpu.FLinear,
	)
	if err := enc.Format(); err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	last := enc.commands[enc.Len()-1].(*Barrier)
	if n := len(last.Textures); n != 2 {
		t.Fatalf("final barrier: want 2 records, got %d", n)
	}
	for i := range last.Textures {
		rec := &last.Textures[i]
		if rec.NumLevels != 1 || rec.NumLayers != 1 {
			t.Errorf("record %d covers more than one subresource: %+v", i, rec)
		}
		if rec.Texture == dst && rec.BaseLevel != 1 {
			t.Errorf("destination record tracks level %d, want 1", rec.BaseLevel)
		}
	}
}
