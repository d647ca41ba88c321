package remote

import (
	"context"
	"net/http"
	"strings"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/iudanet/inkpad/pkg/api"
)

// Subscribe opens the WebSocket change-event channel.
// Канал закрывается при любой ошибке соединения без повторных попыток:
// подписка - только оптимизация задержки, корректность дает polling.
func (c *Client) Subscribe(ctx context.Context) (*Subscription, error) {
	token, err := c.creds.AccessToken(ctx)
	if err != nil {
		return nil, &Error{Op: "subscribe", Kind: KindPermanent, Err: err}
	}

	wsURL := httpToWS(c.baseURL) + "/api/v1/events"

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err != nil {
		if resp != nil {
			return nil, statusErr("subscribe", resp.StatusCode, err)
		}
		return nil, transientErr("subscribe", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	events := make(chan api.ChangeEvent)

	go func() {
		defer close(events)
		defer conn.Close(websocket.StatusNormalClosure, "")

		for {
			var event api.ChangeEvent
			if err := wsjson.Read(subCtx, conn, &event); err != nil {
				// Обрыв или закрытие - потребитель увидит закрытый канал
				return
			}

			select {
			case events <- event:
			case <-subCtx.Done():
				return
			}
		}
	}()

	return &Subscription{Events: events, cancel: cancel}, nil
}

// httpToWS переводит базовый URL в ws/wss схему
func httpToWS(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://")
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://")
	default:
		return baseURL
	}
}
