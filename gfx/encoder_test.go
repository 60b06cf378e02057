// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package gfx

import (
	"testing"

	"github.com/cobalt-gfx/cobalt/gpu"
)

func TestPushInsertsProvisionalBarrier(t *testing.T) {
	tex := newTestTexture(2, 2, gpu.LShaderReadOnly)
	enc := New(newTestDevice())
	enc.ClearTexture(gpu.WholeTexture(tex), gpu.ClearValue{})

	if n := enc.Len(); n != 2 {
		t.Fatalf("Len: want barrier+command, got %d", n)
	}
	b, ok := enc.commands[0].(*Barrier)
	if !ok {
		t.Fatal("command 0: not a barrier")
	}
	if b.SrcStage != gpu.STopOfPipe || b.DstStage != gpu.SBottomOfPipe {
		t.Errorf("provisional stages: got src %#x, dst %#x", int(b.SrcStage), int(b.DstStage))
	}
	// One record per (level, layer) pair.
	if n := len(b.Textures); n != 4 {
		t.Fatalf("want 4 records, got %d", n)
	}
	for i := range b.Textures {
		rec := &b.Textures[i]
		if rec.NumLevels != 1 || rec.NumLayers != 1 {
			t.Errorf("record %d not per-subresource: %+v", i, rec)
		}
		if rec.SrcLayout != tex.InitialLayout() || rec.DstLayout != gpu.LGeneral {
			t.Errorf("record %d layouts: got src %d, dst %d", i, rec.SrcLayout, rec.DstLayout)
		}
		if rec.SrcAccess != gpu.ANone || rec.DstAccess != gpu.ANone {
			t.Errorf("record %d accesses not placeholders", i)
		}
	}
}

func TestPushNoResources(t *testing.T) {
	enc := New(newTestDevice())
	pool := &testQueryPool{count: 4}
	enc.ResetQueryPool(pool, 0, 4)
	enc.WriteTimestamp(pool, 0, gpu.SBottomOfPipe)

	// Commands that touch no resources get no barrier.
	if n := enc.Len(); n != 2 {
		t.Fatalf("Len: want 2, got %d", n)
	}
	if err := enc.Format(); err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if n := enc.Len(); n != 2 {
		t.Errorf("Format appended a barrier with no textures touched: %d commands", enc.Len())
	}
}

func TestRecordReplaysInOrder(t *testing.T) {
	tex := newTestTexture(1, 1, gpu.LShaderReadOnly)
	buf := newTestBuffer(64 * 64 * 4)
	dev := newTestDevice()
	enc := New(dev)
	enc.ClearTexture(gpu.WholeTexture(tex), gpu.ClearValue{})
	enc.CopyTextureToBuffer(gpu.WholeTexture(tex), gpu.WholeBuffer(buf))

	cb, err := dev.NewCommandBuffer()
	if err != nil {
		t.Fatal(err)
	}
	if err := enc.Submit(cb, true); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	tcb := cb.(*testCmdBuffer)
	want := []string{
		"begin",
		"barrier", "clearTexture",
		"barrier", "copyTextureToBuffer",
		"barrier",
		"end",
		"submit",
	}
	if len(tcb.calls) != len(want) {
		t.Fatalf("calls: want %v, got %v", want, tcb.calls)
	}
	for i := range want {
		if tcb.calls[i] != want[i] {
			t.Fatalf("call %d: want %s, got %s", i, want[i], tcb.calls[i])
		}
	}
}

func TestRecordGraphicsPass(t *testing.T) {
	tex := newTestTexture(1, 1, gpu.LPresent)
	buf := newTestBuffer(1024)
	pl := &testGraphicsPipeline{
		pass: gpu.PassLayout{
			Colors: []gpu.AttachmentLayout{{
				Format:  tex.format,
				Samples: 1,
				Initial: gpu.LColorAttachment,
				Final:   gpu.LPresent,
			}},
		},
	}
	dev := newTestDevice()
	enc := New(dev)
	p := enc.BeginGraphicsPass([]gpu.Attachment{{View: gpu.WholeTexture(tex)}}, nil, nil, pl)
	p.BindVertexBuffers(0, []gpu.BufferSlice{gpu.WholeBuffer(buf)})
	p.BindIndexBuffer(gpu.WholeBuffer(buf), gpu.Index16)
	p.DrawIndexed(6, 1, 0, 0, 0)
	p.End()

	cb, _ := dev.NewCommandBuffer()
	if err := enc.Record(cb, false); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	tcb := cb.(*testCmdBuffer)
	want := []string{
		"begin",
		"barrier",
		"beginGraphicsPass",
		"bindVertexBuffers", "bindIndexBuffer", "drawIndexed",
		"endGraphicsPass",
		"barrier",
		"end",
	}
	if len(tcb.calls) != len(want) {
		t.Fatalf("calls: want %v, got %v", want, tcb.calls)
	}
	for i := range want {
		if tcb.calls[i] != want[i] {
			t.Fatalf("call %d: want %s, got %s", i, want[i], tcb.calls[i])
		}
	}
}

func TestMissingFeature(t *testing.T) {
	dev := &testDevice{features: gpu.FeatGraphics}
	enc := New(dev)
	buf := newTestBuffer(64)
	defer func() {
		if recover() == nil {
			t.Error("UpdateBuffer on transfer-less device did not panic")
		}
	}()
	enc.UpdateBuffer(buf, 0, make([]byte, 16))
}

func TestEmptyBufferUpdate(t *testing.T) {
	// The recorder takes the address of the first byte and Vulkan
	// rejects zero-sized updates, so the encoder refuses them.
	enc := New(newTestDevice())
	buf := newTestBuffer(64)
	defer func() {
		if recover() == nil {
			t.Error("UpdateBuffer with no data did not panic")
		}
	}()
	enc.UpdateBuffer(buf, 0, nil)
}

func TestMissingUsage(t *testing.T) {
	enc := New(newTestDevice())
	src := newTestBuffer(64)
	dst := newTestBuffer(64)
	dst.usage &^= gpu.BufCopyDst
	defer func() {
		if recover() == nil {
			t.Error("copy into buffer without BufCopyDst usage did not panic")
		}
	}()
	enc.CopyBufferToBuffer(gpu.WholeBuffer(src), gpu.WholeBuffer(dst))
}

func TestDuplicateAttachment(t *testing.T) {
	tex := newTestTexture(1, 1, gpu.LPresent)
	pl := &testGraphicsPipeline{
		pass: gpu.PassLayout{
			Colors: []gpu.AttachmentLayout{
				{Initial: gpu.LColorAttachment, Final: gpu.LPresent},
				{Initial: gpu.LColorAttachment, Final: gpu.LPresent},
			},
		},
	}
	enc := New(newTestDevice())
	p := enc.BeginGraphicsPass([]gpu.Attachment{
		{View: gpu.WholeTexture(tex)},
		{View: gpu.WholeTexture(tex)},
	}, nil, nil, pl)
	p.Draw(3, 1, 0, 0)
	defer func() {
		if recover() == nil {
			t.Error("pass with duplicate attachments did not panic")
		}
	}()
	p.End()
}

// testQueryPool implements gpu.QueryPool.
type testQueryPool struct {
	count int
}

func (p *testQueryPool) Destroy()   {}
func (p *testQueryPool) Count() int { return p.count }
