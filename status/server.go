package status

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/gorilla/websocket"
	"github.com/tsinghua-fib-lab/takeover-sim/clock"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// GetStatusProcedure 状态查询RPC的完整路径
const GetStatusProcedure = "/takeover.status.v1.StatusService/GetStatus"

const writeTimeout = 5 * time.Second

// Server 状态服务
type Server struct {
	board    *Board
	clock    *clock.Clock
	upgrader websocket.Upgrader
}

// NewServer 创建状态服务
// 参数：board-状态板，c-仿真时钟，为空时不挂载时钟服务
func NewServer(board *Board, c *clock.Clock) *Server {
	if board == nil {
		board = NewBoard()
	}
	return &Server{
		board: board,
		clock: c,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handler 返回挂载了全部路由的HTTP处理器
func (s *Server) Handler(opts ...connect.HandlerOption) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(GetStatusProcedure, connect.NewUnaryHandler(GetStatusProcedure, s.getStatus, opts...))
	if s.clock != nil {
		mux.Handle(s.clock.Handler(opts...))
	}
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func encode(st Status) (*structpb.Struct, error) {
	return structpb.NewStruct(st.toMap())
}

func (s *Server) getStatus(ctx context.Context, in *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	msg, err := encode(s.board.Snapshot())
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// serveWS 每次状态变化时推送一条JSON消息
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("websocket upgrade: %v", err)
		return
	}
	defer conn.Close()
	updates, unsubscribe := s.board.Subscribe()
	defer unsubscribe()

	// 读协程只用于感知客户端断开
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case st := <-updates:
			msg, err := encode(st)
			if err != nil {
				log.Errorf("encode status: %v", err)
				continue
			}
			b, err := protojson.Marshal(msg)
			if err != nil {
				log.Errorf("encode status: %v", err)
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				log.Debugf("websocket write: %v", err)
				return
			}
		}
	}
}

// ListenAndServe 在addr上提供服务直到ctx结束
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("status server listen %s: %w", addr, err)
	}
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	log.Infof("status server listening on %s", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
