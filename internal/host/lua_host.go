package host

import (
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/evanreyes/drawcast/internal/spatial"
	"github.com/evanreyes/drawcast/internal/wire"
)

const spatialDBTypeName = "spatial_db"

// LuaHost is the concrete Host implementation: a single gopher-lua state
// running a user-authored script that defines the lifecycle hooks
// on_connect, on_input, update, draw, on_disconnect and begin_frame. The
// draw-command builder ops are installed both in the api.* global table and
// as plain globals (clear_screen, set_color, ...), and the new_spatial_db()
// constructor binds internal/spatial.Index.
type LuaHost struct {
	mu      sync.Mutex
	state   *lua.LState
	scriptPath string
	builders map[string]*wire.Builder
}

// NewLuaHost loads and runs scriptPath, returning a ready LuaHost. The
// script's top level runs once, registering its lifecycle functions as
// globals; NewLuaHost then calls nothing further until the tick loop
// invokes the Host methods.
func NewLuaHost(scriptPath string) (*LuaHost, error) {
	l := lua.NewState()
	h := &LuaHost{state: l, scriptPath: scriptPath, builders: make(map[string]*wire.Builder)}
	h.registerAPI()
	if err := l.DoFile(scriptPath); err != nil {
		l.Close()
		return nil, fmt.Errorf("load script %s: %w", scriptPath, err)
	}
	return h, nil
}

func (h *LuaHost) callGlobal(name string, args ...lua.LValue) (lua.LValue, error) {
	fn := h.state.GetGlobal(name)
	if fn.Type() != lua.LTFunction {
		return lua.LNil, nil
	}
	if err := h.state.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		return lua.LNil, fmt.Errorf("%s: %w", name, err)
	}
	ret := h.state.Get(-1)
	h.state.Pop(1)
	return ret, nil
}

func (h *LuaHost) BeginFrame() {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, _ = h.callGlobal("begin_frame")
}

func (h *LuaHost) OnConnect(sessionID string) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b := wire.NewBuilder()
	h.builders[sessionID] = b
	h.state.SetGlobal("__active_session", lua.LString(sessionID))
	if _, err := h.callGlobal("on_connect", lua.LString(sessionID)); err != nil {
		return nil, err
	}
	out := make([]byte, len(b.Bytes()))
	copy(out, b.Bytes())
	return out, nil
}

func (h *LuaHost) HandleInput(sessionID string, code byte, isDown bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.callGlobal("on_input", lua.LString(sessionID), lua.LNumber(code), lua.LBool(isDown))
	return err
}

func (h *LuaHost) Update(dt time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.callGlobal("update", lua.LNumber(dt.Seconds()))
	return err
}

func (h *LuaHost) Draw(sessionID string) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.builders[sessionID]
	if !ok {
		b = wire.NewBuilder()
		h.builders[sessionID] = b
	}
	b.Reset()
	h.state.SetGlobal("__active_session", lua.LString(sessionID))
	if _, err := h.callGlobal("draw", lua.LString(sessionID)); err != nil {
		return nil, err
	}
	out := make([]byte, len(b.Bytes()))
	copy(out, b.Bytes())
	return out, nil
}

func (h *LuaHost) OnDisconnect(sessionID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.builders, sessionID)
	_, err := h.callGlobal("on_disconnect", lua.LString(sessionID))
	return err
}

// Eval runs code as a Lua chunk in the running state and returns the
// string form of its first return value, used by the debug evaluate action.
func (h *LuaHost) Eval(code string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn, err := h.state.LoadString(code)
	if err != nil {
		return "", err
	}
	h.state.Push(fn)
	if err := h.state.PCall(0, 1, nil); err != nil {
		return "", err
	}
	ret := h.state.Get(-1)
	h.state.Pop(1)
	return lua.LVAsString(ret), nil
}

func (h *LuaHost) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state.Close()
}

// activeBuilder returns the wire.Builder for whichever session is
// currently being drawn, used by the api.* bindings below.
func (h *LuaHost) activeBuilder() *wire.Builder {
	sid := lua.LVAsString(h.state.GetGlobal("__active_session"))
	b, ok := h.builders[sid]
	if !ok {
		b = wire.NewBuilder()
		h.builders[sid] = b
	}
	return b
}

// registerAPI installs the api global table (each of its functions also as a
// global of the same name) and the new_spatial_db constructor into h.state,
// before the user script is loaded.
func (h *LuaHost) registerAPI() {
	l := h.state
	api := l.NewTable()

	reg := func(name string, fn lua.LGFunction) {
		f := l.NewFunction(fn)
		l.SetField(api, name, f)
		l.SetGlobal(name, f)
	}

	reg("clear_screen", func(l *lua.LState) int {
		b := h.activeBuilder()
		b.Clear(byte(l.CheckInt(1)), byte(l.CheckInt(2)), byte(l.CheckInt(3)))
		return 0
	})
	reg("set_color", func(l *lua.LState) int {
		b := h.activeBuilder()
		b.SetColor(byte(l.CheckInt(1)), byte(l.CheckInt(2)), byte(l.CheckInt(3)), byte(l.OptInt(4, 255)))
		return 0
	})
	reg("fill_rect", func(l *lua.LState) int {
		b := h.activeBuilder()
		b.FillRect(float32(l.CheckNumber(1)), float32(l.CheckNumber(2)), float32(l.CheckNumber(3)), float32(l.CheckNumber(4)))
		return 0
	})
	reg("draw_line", func(l *lua.LState) int {
		b := h.activeBuilder()
		b.DrawLine(float32(l.CheckNumber(1)), float32(l.CheckNumber(2)), float32(l.CheckNumber(3)), float32(l.CheckNumber(4)), float32(l.OptNumber(5, 1)))
		return 0
	})
	reg("draw_text", func(l *lua.LState) int {
		b := h.activeBuilder()
		if err := b.DrawText(float32(l.CheckNumber(1)), float32(l.CheckNumber(2)), l.CheckString(3)); err != nil {
			l.RaiseError("%s", err.Error())
		}
		return 0
	})
	reg("load_sound", func(l *lua.LState) int {
		b := h.activeBuilder()
		if err := b.LoadSound(l.CheckString(1), l.CheckString(2)); err != nil {
			l.RaiseError("%s", err.Error())
		}
		return 0
	})
	reg("play_sound", func(l *lua.LState) int {
		b := h.activeBuilder()
		loop := false
		if l.GetTop() >= 2 {
			loop = bool(l.CheckBool(2))
		}
		if err := b.PlaySound(l.CheckString(1), loop, float32(l.OptNumber(3, 1))); err != nil {
			l.RaiseError("%s", err.Error())
		}
		return 0
	})
	reg("stop_sound", func(l *lua.LState) int {
		b := h.activeBuilder()
		if err := b.StopSound(l.CheckString(1)); err != nil {
			l.RaiseError("%s", err.Error())
		}
		return 0
	})
	reg("set_volume", func(l *lua.LState) int {
		b := h.activeBuilder()
		if err := b.SetVolume(l.CheckString(1), float32(l.CheckNumber(2))); err != nil {
			l.RaiseError("%s", err.Error())
		}
		return 0
	})
	reg("load_image", func(l *lua.LState) int {
		b := h.activeBuilder()
		if err := b.LoadImage(l.CheckString(1), l.CheckString(2)); err != nil {
			l.RaiseError("%s", err.Error())
		}
		return 0
	})
	reg("draw_image", func(l *lua.LState) int {
		b := h.activeBuilder()
		args := wire.DrawImageArgs{
			X: float32(l.CheckNumber(2)), Y: float32(l.CheckNumber(3)),
			W: float32(l.OptNumber(4, 0)), H: float32(l.OptNumber(5, 0)),
			SX: float32(l.OptNumber(6, 0)), SY: float32(l.OptNumber(7, 0)),
			SW: float32(l.OptNumber(8, 0)), SH: float32(l.OptNumber(9, 0)),
			Rotation: float32(l.OptNumber(10, 0)), OX: float32(l.OptNumber(11, 0)), OY: float32(l.OptNumber(12, 0)),
		}
		if err := b.DrawImage(l.CheckString(1), args); err != nil {
			l.RaiseError("%s", err.Error())
		}
		return 0
	})

	l.SetGlobal("api", api)
	l.SetGlobal("new_spatial_db", l.NewFunction(newSpatialDBConstructor))
	registerSpatialDBType(l)
}

// newSpatialDBConstructor implements new_spatial_db(cell_size) -> userdata.
func newSpatialDBConstructor(l *lua.LState) int {
	cellSize := float32(l.OptNumber(1, 64))
	idx := spatial.NewIndex(cellSize)
	ud := l.NewUserData()
	ud.Value = idx
	l.SetMetatable(ud, l.GetTypeMetatable(spatialDBTypeName))
	l.Push(ud)
	return 1
}

func checkSpatialDB(l *lua.LState) *spatial.Index {
	ud := l.CheckUserData(1)
	idx, ok := ud.Value.(*spatial.Index)
	if !ok {
		l.ArgError(1, "expected spatial_db")
	}
	return idx
}

func optTagFilter(l *lua.LState, n int) *string {
	if l.GetTop() < n || l.Get(n) == lua.LNil {
		return nil
	}
	tag := l.CheckString(n)
	return &tag
}

// registerSpatialDBType installs the spatial_db metatable with
// SpatialDb:add_circle / add_segment / query_range / query_rect /
// update_position / remove / cast_ray methods bound onto internal/spatial.Index.
func registerSpatialDBType(l *lua.LState) {
	mt := l.NewTypeMetatable(spatialDBTypeName)
	methods := l.NewTable()
	l.SetField(mt, "__index", methods)

	set := func(name string, fn lua.LGFunction) { l.SetField(methods, name, l.NewFunction(fn)) }

	set("add_circle", func(l *lua.LState) int {
		idx := checkSpatialDB(l)
		id := idx.AddCircle(float32(l.CheckNumber(2)), float32(l.CheckNumber(3)), float32(l.CheckNumber(4)), l.OptString(5, ""))
		l.Push(lua.LNumber(id))
		return 1
	})
	set("add_segment", func(l *lua.LState) int {
		idx := checkSpatialDB(l)
		id := idx.AddSegment(float32(l.CheckNumber(2)), float32(l.CheckNumber(3)), float32(l.CheckNumber(4)), float32(l.CheckNumber(5)), l.OptString(6, ""))
		l.Push(lua.LNumber(id))
		return 1
	})
	set("update_position", func(l *lua.LState) int {
		idx := checkSpatialDB(l)
		idx.UpdatePosition(uint64(l.CheckNumber(2)), float32(l.CheckNumber(3)), float32(l.CheckNumber(4)))
		return 0
	})
	set("remove", func(l *lua.LState) int {
		idx := checkSpatialDB(l)
		idx.Remove(uint64(l.CheckNumber(2)))
		return 0
	})
	set("query_range", func(l *lua.LState) int {
		idx := checkSpatialDB(l)
		ids := idx.QueryRange(float32(l.CheckNumber(2)), float32(l.CheckNumber(3)), float32(l.CheckNumber(4)), optTagFilter(l, 5))
		out := l.NewTable()
		for i, id := range ids {
			out.RawSetInt(i+1, lua.LNumber(id))
		}
		l.Push(out)
		return 1
	})
	set("query_rect", func(l *lua.LState) int {
		idx := checkSpatialDB(l)
		ids := idx.QueryRect(float32(l.CheckNumber(2)), float32(l.CheckNumber(3)), float32(l.CheckNumber(4)), float32(l.CheckNumber(5)), optTagFilter(l, 6))
		out := l.NewTable()
		for i, id := range ids {
			out.RawSetInt(i+1, lua.LNumber(id))
		}
		l.Push(out)
		return 1
	})
	set("cast_ray", func(l *lua.LState) int {
		idx := checkSpatialDB(l)
		hit, ok := idx.CastRay(float32(l.CheckNumber(2)), float32(l.CheckNumber(3)), float32(l.CheckNumber(4)), float32(l.CheckNumber(5)), optTagFilter(l, 6))
		if !ok {
			l.Push(lua.LNil)
			return 1
		}
		out := l.NewTable()
		l.SetField(out, "id", lua.LNumber(hit.ID))
		l.SetField(out, "fraction", lua.LNumber(hit.Fraction))
		l.SetField(out, "x", lua.LNumber(hit.X))
		l.SetField(out, "y", lua.LNumber(hit.Y))
		l.Push(out)
		return 1
	})
}
