package status

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/gorilla/websocket"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Fetch 查询一次运行状态
// 参数：baseURL-状态服务地址（如http://127.0.0.1:8090）
func Fetch(ctx context.Context, baseURL string) (map[string]any, error) {
	client := connect.NewClient[structpb.Struct, structpb.Struct](http.DefaultClient, strings.TrimRight(baseURL, "/")+GetStatusProcedure)
	res, err := client.CallUnary(ctx, connect.NewRequest(&structpb.Struct{}))
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}
	return res.Msg.AsMap(), nil
}

// Follow 订阅状态推送，每收到一条调用一次fn，直到ctx结束或连接断开
func Follow(ctx context.Context, baseURL string, fn func(map[string]any)) error {
	url := "ws" + strings.TrimPrefix(strings.TrimRight(baseURL, "/"), "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read status: %w", err)
		}
		var st structpb.Struct
		if err := protojson.Unmarshal(msg, &st); err != nil {
			log.Warnf("decode status: %v", err)
			continue
		}
		fn(st.AsMap())
	}
}
