package observability

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	p := NoopPipelineHooks{}
	p.OnLoadStart(ctx, "flow.json")
	p.OnLoadComplete(ctx, "flow.json", 3, 2, time.Second, nil)
	p.OnLayoutStart(ctx, "TB", 3)
	p.OnLayoutComplete(ctx, "TB", time.Second, nil)
	p.OnRenderStart(ctx, "svg")
	p.OnRenderComplete(ctx, "svg", 1024, time.Second, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "layout")
	c.OnCacheMiss(ctx, "layout")
	c.OnCacheSet(ctx, "artifact", 1024)

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "/v1/catalog")
	h.OnResponse(ctx, "GET", "/v1/catalog", 200, time.Second)
	h.OnError(ctx, "GET", "/v1/catalog", nil)

	cv := NoopCanvasHooks{}
	cv.OnEvent(ctx, "c1", "click", "task")
	cv.OnDelete(ctx, "c1", "task")
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}
	if _, ok := Canvas().(NoopCanvasHooks); !ok {
		t.Error("Canvas() should return NoopCanvasHooks by default")
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

	customCanvas := &testCanvasHooks{}
	SetCanvasHooks(customCanvas)
	if Canvas() != customCanvas {
		t.Error("SetCanvasHooks should set custom hooks")
	}

	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset() should restore NoopPipelineHooks")
	}
	if _, ok := Canvas().(NoopCanvasHooks); !ok {
		t.Error("Reset() should restore NoopCanvasHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()
	defer Reset()

	custom := &testPipelineHooks{}
	SetPipelineHooks(custom)
	SetPipelineHooks(nil)

	if Pipeline() != custom {
		t.Error("SetPipelineHooks(nil) should be ignored")
	}
}

func TestLogHooks(t *testing.T) {
	Reset()
	defer Reset()

	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})
	h := NewLogHooks(logger)
	h.Install()

	ctx := context.Background()
	Pipeline().OnLayoutComplete(ctx, "LR", time.Millisecond, nil)
	Cache().OnCacheMiss(ctx, "layout")
	HTTP().OnError(ctx, "POST", "/v1/layout", errors.New("boom"))
	Canvas().OnDelete(ctx, "c1", "task")

	out := buf.String()
	for _, want := range []string{"layout done", "direction=LR", "cache miss", "boom", "element deleted", "id=task"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

type testPipelineHooks struct{ NoopPipelineHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
type testCanvasHooks struct{ NoopCanvasHooks }
