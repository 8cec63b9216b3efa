package websocket

import (
	"apparel-studio/core"
	"apparel-studio/editor"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/zishang520/engine.io/v2/types"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

type ackFunc func(payload map[string]any, err error)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

type serverEmitter struct {
	srv *socketio.Server
}

func (e serverEmitter) EmitTo(room, event string, payload any) error {
	return e.srv.To(socketio.Room(room)).Emit(event, payload)
}

// SetupSocketIO serves live session updates. Clients send "join-session"
// with a session id and receive "session-updated" after every change.
func SetupSocketIO(reg *editor.Registry) (*socketio.Server, *Hub) {
	opts := socketio.DefaultServerOptions()
	opts.SetMaxHttpBufferSize(1000000)
	opts.SetPath("/socket.io")
	opts.SetAllowEIO3(true)
	localhostOrigin := regexp.MustCompile(`^https?://(localhost|127\.0\.0\.1|\[::1\])(:\d+)?$`)
	opts.SetCors(&types.Cors{
		Origin:      []any{localhostOrigin},
		Credentials: true,
	})
	srv := socketio.NewServer(nil, opts)
	hub := NewHub(reg, serverEmitter{srv})

	//nolint:errcheck // Socket.IO event handlers do not return useful errors
	srv.On("connection", func(clients ...any) {
		socket, ok := clients[0].(*socketio.Socket)
		if !ok {
			return
		}
		log := logrus.WithField("socket_id", socket.Id())
		log.Debug("Client connected")

		//nolint:errcheck
		socket.On("join-session", func(datas ...any) {
			ack, args := popAck(datas)
			sessionID, err := stringArg(args)
			if err == nil {
				var update Update
				if update, err = hub.Attach(sessionID); err == nil {
					socket.Join(socketio.Room(RoomName(sessionID)))
					log.WithField("session_id", sessionID).Info("Joined session")
					reply(socket, ack, "join-session-ack", map[string]any{"status": "ok", "revision": update.Revision}, nil)
					_ = socket.Emit("session-updated", update)
					return
				}
			}
			reply(socket, ack, "join-session-ack", map[string]any{"status": "error", "error": err.Error()}, err)
		})

		socket.On("leave-session", func(datas ...any) {
			_, args := popAck(datas)
			sessionID, err := stringArg(args)
			if err != nil {
				return
			}
			room := socketio.Room(RoomName(sessionID))
			if slices.Contains(socket.Rooms().Keys(), room) {
				socket.Leave(room)
				hub.Detach(sessionID)
			}
		})

		socket.On("pointer", func(datas ...any) {
			ack, args := popAck(datas)
			err := handlePointer(reg, args)
			if err != nil {
				log.WithError(err).Debug("Rejected pointer event")
				reply(socket, ack, "", map[string]any{"status": "error", "error": err.Error()}, err)
				return
			}
			reply(socket, ack, "", map[string]any{"status": "ok"}, nil)
		})

		socket.On("disconnecting", func(datas ...any) {
			for _, room := range socket.Rooms().Keys() {
				if id, ok := strings.CutPrefix(string(room), "session:"); ok {
					hub.Detach(id)
				}
			}
		})

		socket.On("disconnect", func(datas ...any) {
			socket.RemoveAllListeners("")
			log.Debug("Client disconnected")
		})
	})

	return srv, hub
}

// handlePointer drives a session's interaction controller from
// ("pointer", sessionID, {type, x, y}).
func handlePointer(reg *editor.Registry, args []any) error {
	if len(args) < 2 {
		return fmt.Errorf("pointer event needs a session id and an event")
	}
	sessionID, _ := args[0].(string)
	s, err := reg.Get(sessionID)
	if err != nil {
		return err
	}
	ev, ok := args[1].(map[string]any)
	if !ok {
		return fmt.Errorf("invalid pointer event")
	}
	x, _ := ev["x"].(float64)
	y, _ := ev["y"].(float64)
	p := core.Point{X: x, Y: y}

	switch ev["type"] {
	case "down":
		s.PointerDown(p)
	case "move":
		s.PointerMove(p)
	case "up":
		s.PointerUp()
	case "leave":
		s.PointerLeave()
	default:
		return fmt.Errorf("unknown pointer event type %v", ev["type"])
	}
	return nil
}

func stringArg(args []any) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("session id is required")
	}
	id, ok := args[0].(string)
	if !ok || id == "" {
		return "", fmt.Errorf("invalid session id")
	}
	return id, nil
}

// popAck splits off the acknowledgement callback a client may pass as the
// last event argument.
func popAck(datas []any) (ackFunc, []any) {
	if len(datas) == 0 {
		return nil, datas
	}
	fn := reflect.ValueOf(datas[len(datas)-1])
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return nil, datas
	}
	return func(payload map[string]any, err error) {
		callAck(fn, payload, err)
	}, datas[:len(datas)-1]
}

func callAck(fn reflect.Value, payload map[string]any, err error) {
	typ := fn.Type()
	if typ.IsVariadic() && typ.NumIn() == 1 {
		fn.CallSlice([]reflect.Value{reflect.ValueOf([]any{payload})})
		return
	}

	in := make([]reflect.Value, typ.NumIn())
	for i := range in {
		param := typ.In(i)
		var v any
		switch {
		case param == errorType:
			if err != nil {
				v = err
			}
		case param.Kind() == reflect.Slice:
			v = []any{payload}
		default:
			v = payload
		}
		in[i] = reflect.Zero(param)
		if v != nil && reflect.TypeOf(v).AssignableTo(param) {
			in[i] = reflect.ValueOf(v)
		}
	}
	fn.Call(in)
}

func reply(socket *socketio.Socket, ack ackFunc, event string, payload map[string]any, err error) {
	if ack != nil {
		ack(payload, err)
	}
	if event != "" {
		_ = socket.Emit(event, payload)
	}
}
