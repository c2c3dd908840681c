// Package scripting executes Lua scripts attached to interactable entities
// in response to an "interact" input, letting map/game authors express
// bespoke behavior without a Go recompile. Adapted from the teacher's
// script_engine.go: the lua.LState pool, the ctx-table parameter marshaling,
// and the Go<->Lua value conversion helpers are kept closely; the script API
// is rewired from the teacher's raw ObjectData.Props map onto
// internal/entity's schema-typed fields, and effects route through
// internal/sidefx instead of firing a dispatcher broadcast inline.
package scripting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/wildspark/arena/internal/entity"
	"github.com/wildspark/arena/internal/schema"
	"github.com/wildspark/arena/internal/sidefx"
)

// Logger is the narrow logging surface scripting needs, satisfied by
// room.Logger / runtime.Logger alike.
type Logger interface {
	Debug(format string, v ...interface{})
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Effect is a side effect a script requested: an acknowledgement toast to
// deliver to the interacting player, queued through internal/sidefx rather
// than sent synchronously from inside the Lua call.
type Effect struct {
	AckMessage string
}

// Engine runs interact scripts against entities whose fields are declared
// in a schema.Registry. Each Execute takes a lua.LState from a sync.Pool
// and closes it when done, so a state is never reused across calls.
type Engine struct {
	logger  Logger
	baseDir string
	reg     *schema.Registry
	pool    sync.Pool
}

// NewEngine returns an Engine that resolves script paths relative to
// baseDir and lets scripts set only fields declared in reg for the target's
// class; the value's kind is not checked against the declaration.
func NewEngine(logger Logger, baseDir string, reg *schema.Registry) *Engine {
	return &Engine{
		logger:  logger,
		baseDir: baseDir,
		reg:     reg,
		pool: sync.Pool{
			New: func() any {
				return lua.NewState(lua.Options{SkipOpenLibs: false})
			},
		},
	}
}

// Execute runs scriptPath against target (the entity the script acts on,
// typically the one a player is interacting with), exposing params as the
// global Lua table `ctx`. Returned effects are not yet queued; the caller
// (internal/room's onInput hook) routes them through its own sidefx.Queue,
// e.g. via QueueEffects.
func (e *Engine) Execute(scriptPath string, target *entity.Entity, params map[string]any) ([]Effect, error) {
	L := e.pool.Get().(*lua.LState)
	defer L.Close()

	var effects []Effect

	register := func(name string, fn lua.LGFunction) {
		L.SetGlobal(name, L.NewFunction(fn))
	}

	register("effect_ack", func(L *lua.LState) int {
		effects = append(effects, Effect{AckMessage: L.CheckString(1)})
		return 0
	})

	// Script API: set_prop(key, value) mutates target's schema field if
	// key is declared on target's class; unknown keys are ignored, same
	// contract as entity.ApplySnapshot.
	register("set_prop", func(L *lua.LState) int {
		if target == nil {
			return 0
		}
		key := L.CheckString(1)
		val := L.CheckAny(2)

		declared := e.reg.FieldsOf(target.Class)
		if _, ok := declared[key]; !ok {
			e.logger.Warn("scripting: %s ignoring set_prop for undeclared field %q on class %s", scriptPath, key, target.Class)
			return 0
		}

		target.Set(key, luaToGo(L, val))
		return 0
	})

	// Script API: get_prop(key) reads target's current schema field value.
	register("get_prop", func(L *lua.LState) int {
		if target == nil {
			L.Push(lua.LNil)
			return 1
		}
		v, ok := target.Get(L.CheckString(1))
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(goToLua(L, v))
		return 1
	})

	ctxTbl := L.NewTable()
	for k, v := range params {
		L.SetField(ctxTbl, k, goToLua(L, v))
	}
	L.SetGlobal("ctx", ctxTbl)

	abs := filepath.Join(e.baseDir, scriptPath)
	if _, err := os.Stat(abs); err != nil {
		e.logger.Error("scripting: script file not found: %s", scriptPath)
		return effects, err
	}
	if err := L.DoFile(abs); err != nil {
		e.logger.Error("scripting: error executing %s: %v", scriptPath, err)
		return effects, err
	}

	return effects, nil
}

// QueueEffects defers delivery of every effect onto q via deliver — the
// caller supplies the host-specific "send this message to this user"
// closure (e.g. a NakamaModule.NotificationSend wrapper), keeping this
// package ignorant of any transport. Each effect gets its own queue entry
// so one failing delivery's retry backoff does not delay the others.
func QueueEffects(q *sidefx.Queue, effects []Effect, deliver func(msg string) error) {
	for _, eff := range effects {
		msg := eff.AckMessage
		q.Defer(func(ctx context.Context) error { return deliver(msg) })
	}
}

func luaToGo(L *lua.LState, v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		return float64(val)
	case lua.LString:
		return string(val)
	case *lua.LTable:
		return luaTableToGo(val)
	case *lua.LNilType:
		return nil
	default:
		return v.String()
	}
}

func luaTableToGo(tbl *lua.LTable) any {
	maxIdx := 0
	isArray := true
	tbl.ForEach(func(k, v lua.LValue) {
		if keyNum, ok := k.(lua.LNumber); ok {
			if int(keyNum) > maxIdx {
				maxIdx = int(keyNum)
			}
		} else {
			isArray = false
		}
	})
	if isArray && maxIdx > 0 {
		arr := make([]any, 0, maxIdx)
		for i := 1; i <= maxIdx; i++ {
			val := tbl.RawGetInt(i)
			if vtbl, ok := val.(*lua.LTable); ok {
				arr = append(arr, luaTableToGo(vtbl))
				continue
			}
			switch vv := val.(type) {
			case lua.LString:
				arr = append(arr, string(vv))
			case lua.LNumber:
				arr = append(arr, float64(vv))
			case lua.LBool:
				arr = append(arr, bool(vv))
			default:
				arr = append(arr, val.String())
			}
		}
		return arr
	}

	m := make(map[string]any)
	tbl.ForEach(func(k, v lua.LValue) {
		keyStr := k.String()
		switch val := v.(type) {
		case lua.LString:
			m[keyStr] = string(val)
		case lua.LNumber:
			m[keyStr] = float64(val)
		case lua.LBool:
			m[keyStr] = bool(val)
		case *lua.LTable:
			m[keyStr] = luaTableToGo(val)
		default:
			m[keyStr] = v.String()
		}
	})
	return m
}

func goToLua(L *lua.LState, v any) lua.LValue {
	switch vv := v.(type) {
	case nil:
		return lua.LNil
	case string:
		return lua.LString(vv)
	case bool:
		return lua.LBool(vv)
	case float32:
		return lua.LNumber(vv)
	case float64:
		return lua.LNumber(vv)
	case int:
		return lua.LNumber(vv)
	case int32:
		return lua.LNumber(vv)
	case int64:
		return lua.LNumber(vv)
	case uint64:
		return lua.LNumber(vv)
	case map[string]any:
		tbl := L.NewTable()
		for k, v := range vv {
			tbl.RawSetString(k, goToLua(L, v))
		}
		return tbl
	case []any:
		tbl := L.NewTable()
		for i, v := range vv {
			tbl.RawSetInt(i+1, goToLua(L, v))
		}
		return tbl
	default:
		return lua.LString(fmt.Sprintf("%v", vv))
	}
}
