// Package debugapi exposes the /mcp debug endpoint: evaluate, render,
// inspect, and get_sdk actions, bridged into the tick loop via EvalRequest
// and SnapshotRequest channels rather than shared mutable state.
package debugapi

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/evanreyes/drawcast/internal/engine"
	"github.com/evanreyes/drawcast/internal/rasterizer"
)

// requestTimeout bounds how long the handler waits for the tick loop to
// answer an Eval or Snapshot request before giving up.
const requestTimeout = 2 * time.Second

// Request is the JSON body of a POST to /mcp.
type Request struct {
	Action    string `json:"action"`
	Code      string `json:"code,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// Response is the JSON reply from /mcp. Exactly one of Result, Image,
// Metrics, or SDK is populated, depending on Action.
type Response struct {
	Status  string      `json:"status"`
	Result  string      `json:"result,omitempty"`
	Image   string      `json:"image,omitempty"`
	Metrics *Metrics    `json:"metrics,omitempty"`
	SDK     []SDKEntry  `json:"sdk,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Metrics reports coarse process resource usage for the inspect action.
// No system-metrics library exists anywhere in the corpus, so this one
// component is built directly on runtime.MemStats/NumCPU.
type Metrics struct {
	CPUCount    int    `json:"cpu_count"`
	MemUsedMB   uint64 `json:"mem_used_mb"`
	MemTotalMB  uint64 `json:"mem_total_mb"`
	Goroutines  int    `json:"goroutines"`
}

// SDKEntry documents one api.* function for the get_sdk action.
type SDKEntry struct {
	Name   string   `json:"name"`
	Params []string `json:"params"`
	Doc    string   `json:"doc"`
}

// Handler serves POST /mcp, enabled only when the operator opts in
// (config.DebugMCP).
type Handler struct {
	Loop *engine.Loop
}

func NewHandler(loop *engine.Loop) *Handler {
	return &Handler{Loop: loop}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Status: "error", Error: "invalid JSON"})
		return
	}

	switch req.Action {
	case "evaluate":
		h.handleEvaluate(w, req)
	case "render":
		h.handleRender(w, req)
	case "inspect":
		h.handleInspect(w)
	case "get_sdk":
		h.handleGetSDK(w)
	default:
		writeJSON(w, http.StatusBadRequest, Response{Status: "error", Error: "unknown action"})
	}
}

func (h *Handler) handleEvaluate(w http.ResponseWriter, req Request) {
	reply := make(chan engine.EvalResult, 1)
	if !h.Loop.SubmitEval(engine.EvalRequest{Code: req.Code, Reply: reply}) {
		writeJSON(w, http.StatusServiceUnavailable, Response{Status: "error", Error: "eval queue full"})
		return
	}
	select {
	case res := <-reply:
		if res.Err != nil {
			writeJSON(w, http.StatusOK, Response{Status: "error", Error: res.Err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, Response{Status: "ok", Result: res.Result})
	case <-time.After(requestTimeout):
		writeJSON(w, http.StatusGatewayTimeout, Response{Status: "error", Error: "eval timed out"})
	}
}

func (h *Handler) handleRender(w http.ResponseWriter, req Request) {
	reply := make(chan engine.SnapshotResult, 1)
	if !h.Loop.SubmitSnapshot(engine.SnapshotRequest{SessionID: req.SessionID, Reply: reply}) {
		writeJSON(w, http.StatusServiceUnavailable, Response{Status: "error", Error: "snapshot queue full"})
		return
	}
	select {
	case res := <-reply:
		if res.Err != nil {
			writeJSON(w, http.StatusOK, Response{Status: "error", Error: res.Err.Error()})
			return
		}
		png, err := rasterizer.EncodePNG(res.Payload)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, Response{Status: "error", Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, Response{Status: "ok", Image: base64.StdEncoding.EncodeToString(png)})
	case <-time.After(requestTimeout):
		writeJSON(w, http.StatusGatewayTimeout, Response{Status: "error", Error: "render timed out"})
	}
}

func (h *Handler) handleInspect(w http.ResponseWriter) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	writeJSON(w, http.StatusOK, Response{Status: "ok", Metrics: &Metrics{
		CPUCount:   runtime.NumCPU(),
		MemUsedMB:  mem.Alloc / (1024 * 1024),
		MemTotalMB: mem.Sys / (1024 * 1024),
		Goroutines: runtime.NumGoroutine(),
	}})
}

func (h *Handler) handleGetSDK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, Response{Status: "ok", SDK: sdkCatalog})
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// sdkCatalog documents the api.* functions exposed to game scripts,
// served by the get_sdk action so an LLM debugging client can discover
// the scripting surface without reading source.
var sdkCatalog = []SDKEntry{
	{Name: "clear_screen", Params: []string{"r", "g", "b"}, Doc: "Fill the frame with a solid background color."},
	{Name: "set_color", Params: []string{"r", "g", "b", "a"}, Doc: "Set the color used by subsequent fill/stroke/text ops."},
	{Name: "fill_rect", Params: []string{"x", "y", "w", "h"}, Doc: "Fill a rectangle with the current color."},
	{Name: "draw_line", Params: []string{"x1", "y1", "x2", "y2", "width"}, Doc: "Stroke a line with the current color."},
	{Name: "draw_text", Params: []string{"x", "y", "text"}, Doc: "Draw text at a position with the current color."},
	{Name: "load_sound", Params: []string{"name", "url"}, Doc: "Register a sound asset under name."},
	{Name: "play_sound", Params: []string{"name", "loop", "volume"}, Doc: "Play a previously loaded sound."},
	{Name: "stop_sound", Params: []string{"name"}, Doc: "Stop a playing sound."},
	{Name: "set_volume", Params: []string{"name", "volume"}, Doc: "Change a sound's playback volume."},
	{Name: "load_image", Params: []string{"name", "url"}, Doc: "Register an image asset under name."},
	{Name: "draw_image", Params: []string{"name", "x", "y", "w", "h", "sx", "sy", "sw", "sh", "rotation", "ox", "oy"}, Doc: "Draw a previously loaded image, optionally cropped and rotated."},
	{Name: "new_spatial_db", Params: []string{"cell_size"}, Doc: "Create a spatial index for broadphase/narrowphase queries."},
	{Name: "SpatialDb:add_circle", Params: []string{"x", "y", "radius", "tag"}, Doc: "Insert a circular entity, returning its id."},
	{Name: "SpatialDb:add_segment", Params: []string{"x1", "y1", "x2", "y2", "tag"}, Doc: "Insert a segment entity, returning its id."},
	{Name: "SpatialDb:update_position", Params: []string{"id", "x", "y"}, Doc: "Move an entity, translating segments by the same delta."},
	{Name: "SpatialDb:remove", Params: []string{"id"}, Doc: "Remove an entity."},
	{Name: "SpatialDb:query_range", Params: []string{"x", "y", "r", "tag"}, Doc: "Return ids within range r of (x,y)."},
	{Name: "SpatialDb:query_rect", Params: []string{"min_x", "min_y", "max_x", "max_y", "tag"}, Doc: "Return ids whose AABB overlaps the rectangle."},
	{Name: "SpatialDb:cast_ray", Params: []string{"x", "y", "angle", "max_dist", "tag"}, Doc: "Cast a ray, returning the nearest hit or nil."},
}
