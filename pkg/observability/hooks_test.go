package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	r := NoopRewriteHooks{}
	r.OnPassStart(ctx, "top-down", 2)
	r.OnPassComplete(ctx, "top-down", 10, time.Millisecond, nil)
	r.OnRuleApplied(ctx, "simplifyEmptyAggregate")
	r.OnDiagnostic(ctx, "simplifyEmptyBinaryOperation", "both operands empty")

	p := NoopPipelineHooks{}
	p.OnLoadStart(ctx, "prog.toml")
	p.OnLoadComplete(ctx, "prog.toml", 12, time.Second, nil)
	p.OnRewriteStart(ctx, "prog.toml", 12)
	p.OnRewriteComplete(ctx, "prog.toml", 3, time.Second, nil)
	p.OnExportStart(ctx, "prog.toml", "json")
	p.OnExportComplete(ctx, "prog.toml", "json", 512, time.Second, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "rewrite")
	c.OnCacheMiss(ctx, "rewrite")
	c.OnCacheSet(ctx, "rewrite", 1024)

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "POST", "/v1/optimize")
	h.OnResponse(ctx, "POST", "/v1/optimize", 200, time.Second)
	h.OnError(ctx, "POST", "/v1/optimize", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	if _, ok := Rewrite().(NoopRewriteHooks); !ok {
		t.Error("Rewrite() should return NoopRewriteHooks by default")
	}
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	customRewrite := &testRewriteHooks{}
	SetRewriteHooks(customRewrite)
	if Rewrite() != customRewrite {
		t.Error("SetRewriteHooks should set custom hooks")
	}

	customPipeline := &testPipelineHooks{}
	SetPipelineHooks(customPipeline)
	if Pipeline() != customPipeline {
		t.Error("SetPipelineHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Rewrite().(NoopRewriteHooks); !ok {
		t.Error("Reset() should restore NoopRewriteHooks")
	}
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset() should restore NoopPipelineHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testRewriteHooks{}
	SetRewriteHooks(custom)

	// Setting nil should be ignored
	SetRewriteHooks(nil)

	if Rewrite() != custom {
		t.Error("SetRewriteHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testRewriteHooks struct{ NoopRewriteHooks }
type testPipelineHooks struct{ NoopPipelineHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
