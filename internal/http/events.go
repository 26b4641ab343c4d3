package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"barbershop/backend/internal/i18n"
	"barbershop/backend/internal/live"

	"go.uber.org/zap"
)

const keepAlive = 25 * time.Second

// streamEvents tells the client which mirrored feed changed so it can
// refetch the views built from it. The stream ends when the client leaves
// or done closes.
func streamEvents(m *live.Mirror, done <-chan struct{}, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fl, ok := w.(http.Flusher)
		if !ok {
			Fail(w, r, http.StatusInternalServerError, i18n.MsgInternal)
			return
		}

		changes := make(chan live.Change, 16)
		unsubscribe := m.Subscribe(func(c live.Change) {
			select {
			case changes <- c:
			default:
				log.Debug("event stream is behind, dropping change", zap.String("feed", string(c.Feed)))
			}
		})
		defer unsubscribe()

		h := w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "event: ready\ndata: {}\n\n")
		fl.Flush()

		ping := time.NewTicker(keepAlive)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-done:
				return
			case c := <-changes:
				b, _ := json.Marshal(c)
				fmt.Fprintf(w, "event: change\ndata: %s\n\n", b)
				fl.Flush()
			case <-ping.C:
				fmt.Fprint(w, ": ping\n\n")
				fl.Flush()
			}
		}
	}
}
