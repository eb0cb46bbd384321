package host

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/evanreyes/drawcast/internal/wire"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "game.lua")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

const minimalScript = `
connected = {}

function on_connect(session_id)
    connected[session_id] = true
    set_color(1, 2, 3, 255)
    fill_rect(0, 0, 10, 10)
end

function on_input(session_id, code, is_down)
    last_code = code
    last_down = is_down
end

function update(dt)
    last_dt = dt
end

function draw(session_id)
    clear_screen(9, 9, 9)
    if connected[session_id] then
        fill_rect(1, 1, 2, 2)
    end
end

function on_disconnect(session_id)
    connected[session_id] = nil
end
`

func TestOnConnectReturnsPreambleFromDrawCommands(t *testing.T) {
	h, err := NewLuaHost(writeScript(t, minimalScript))
	if err != nil {
		t.Fatalf("NewLuaHost: %v", err)
	}
	defer h.Close()

	preamble, err := h.OnConnect("s1")
	if err != nil {
		t.Fatalf("OnConnect: %v", err)
	}
	records := wire.DecodeAll(preamble)
	if len(records) != 2 {
		t.Fatalf("expected 2 records in preamble, got %d: %#v", len(records), records)
	}
	if _, ok := records[0].(wire.SetColorRecord); !ok {
		t.Fatalf("expected first record to be SetColor, got %#v", records[0])
	}
	if _, ok := records[1].(wire.FillRectRecord); !ok {
		t.Fatalf("expected second record to be FillRect, got %#v", records[1])
	}
}

func TestDrawProducesPerSessionFrame(t *testing.T) {
	h, err := NewLuaHost(writeScript(t, minimalScript))
	if err != nil {
		t.Fatalf("NewLuaHost: %v", err)
	}
	defer h.Close()

	if _, err := h.OnConnect("s1"); err != nil {
		t.Fatalf("OnConnect: %v", err)
	}

	frame, err := h.Draw("s1")
	if err != nil {
		t.Fatalf("Draw: %v", err)
	}
	records := wire.DecodeAll(frame)
	if len(records) != 2 {
		t.Fatalf("expected clear + fill_rect for connected session, got %d: %#v", len(records), records)
	}
	if _, ok := records[0].(wire.ClearRecord); !ok {
		t.Fatalf("expected first record to be Clear, got %#v", records[0])
	}
}

func TestDrawForUnknownSessionOnlyClearsScreen(t *testing.T) {
	h, err := NewLuaHost(writeScript(t, minimalScript))
	if err != nil {
		t.Fatalf("NewLuaHost: %v", err)
	}
	defer h.Close()

	frame, err := h.Draw("never-connected")
	if err != nil {
		t.Fatalf("Draw: %v", err)
	}
	records := wire.DecodeAll(frame)
	if len(records) != 1 {
		t.Fatalf("expected just the clear_screen call, got %d: %#v", len(records), records)
	}
	if _, ok := records[0].(wire.ClearRecord); !ok {
		t.Fatalf("expected Clear record, got %#v", records[0])
	}
}

func TestHandleInputAndUpdateDoNotError(t *testing.T) {
	h, err := NewLuaHost(writeScript(t, minimalScript))
	if err != nil {
		t.Fatalf("NewLuaHost: %v", err)
	}
	defer h.Close()

	if err := h.HandleInput("s1", 38, true); err != nil {
		t.Fatalf("HandleInput: %v", err)
	}
	if err := h.Update(16 * time.Millisecond); err != nil {
		t.Fatalf("Update: %v", err)
	}
}

func TestOnDisconnectRunsWithoutError(t *testing.T) {
	h, err := NewLuaHost(writeScript(t, minimalScript))
	if err != nil {
		t.Fatalf("NewLuaHost: %v", err)
	}
	defer h.Close()

	if _, err := h.OnConnect("s1"); err != nil {
		t.Fatalf("OnConnect: %v", err)
	}
	if err := h.OnDisconnect("s1"); err != nil {
		t.Fatalf("OnDisconnect: %v", err)
	}

	frame, err := h.Draw("s1")
	if err != nil {
		t.Fatalf("Draw after disconnect: %v", err)
	}
	records := wire.DecodeAll(frame)
	if len(records) != 1 {
		t.Fatalf("expected session removed from connected set, got %d records: %#v", len(records), records)
	}
}

func TestEvalRunsArbitraryCode(t *testing.T) {
	h, err := NewLuaHost(writeScript(t, minimalScript))
	if err != nil {
		t.Fatalf("NewLuaHost: %v", err)
	}
	defer h.Close()

	result, err := h.Eval("return 1 + 2")
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if result != "3" {
		t.Fatalf("expected \"3\", got %q", result)
	}
}

func TestEvalSyntaxErrorIsReported(t *testing.T) {
	h, err := NewLuaHost(writeScript(t, minimalScript))
	if err != nil {
		t.Fatalf("NewLuaHost: %v", err)
	}
	defer h.Close()

	if _, err := h.Eval("this is not lua("); err == nil {
		t.Fatalf("expected syntax error")
	}
}

func TestNewLuaHostSyntaxErrorIsReported(t *testing.T) {
	if _, err := NewLuaHost(writeScript(t, "function draw( -- unbalanced")); err == nil {
		t.Fatalf("expected load error for malformed script")
	}
}

const spatialScript = `
db = new_spatial_db(50)
wall = db:add_segment(100, 0, 100, 200, "wall")
player = db:add_circle(0, 100, 5, "player")

function on_connect(session_id) end
function on_input(session_id, code, is_down) end
function update(dt) end
function draw(session_id)
    local hit = db:cast_ray(0, 100, 0, 300, "wall")
    if hit ~= nil then
        set_color(1, 1, 1, 255)
        draw_text(hit.x, hit.y, "hit")
    end
    local nearby = db:query_range(0, 100, 10, "player")
    if #nearby == 1 then
        fill_rect(0, 0, 1, 1)
    end
    db:update_position(player, 10, 100)
    db:remove(player)
end
function on_disconnect(session_id) end
`

func TestSpatialDBBindingsAreReachableFromDraw(t *testing.T) {
	h, err := NewLuaHost(writeScript(t, spatialScript))
	if err != nil {
		t.Fatalf("NewLuaHost: %v", err)
	}
	defer h.Close()

	frame, err := h.Draw("s1")
	if err != nil {
		t.Fatalf("Draw: %v", err)
	}
	records := wire.DecodeAll(frame)
	if len(records) != 3 {
		t.Fatalf("expected set_color+draw_text from the ray hit plus fill_rect from the range query, got %d: %#v", len(records), records)
	}
}

func TestLoaderReloadsOnWriteAndKeepsPriorHostOnFailure(t *testing.T) {
	path := writeScript(t, minimalScript)

	loader, initial, err := NewLoader(path)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	defer loader.Close()
	defer initial.Close()

	updated := minimalScript + "\nfunction extra() end\n"
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatalf("rewrite script: %v", err)
	}

	select {
	case next := <-loader.Reloaded:
		defer next.Close()
		if next == initial {
			t.Fatalf("expected a distinct host after reload")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for reload")
	}

	if err := os.WriteFile(path, []byte("this is not lua("), 0o644); err != nil {
		t.Fatalf("write broken script: %v", err)
	}

	select {
	case <-loader.Reloaded:
		t.Fatalf("expected no reload to be emitted for a script with a syntax error")
	case <-time.After(300 * time.Millisecond):
	}
}
