package postgresql

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/Ruruu18/Smart-Parking-sub000/internal/domain"
	"github.com/lib/pq"
)

// ChangeChannel là kênh NOTIFY mà trigger notify_table_change() phát tới.
const ChangeChannel = "table_changes"

// ChangeListener nhận thông báo thay đổi dòng qua LISTEN/NOTIFY.
type ChangeListener struct {
	dsn         string
	minInterval time.Duration
	maxInterval time.Duration
}

func NewChangeListener(dsn string) *ChangeListener {
	return &ChangeListener{dsn: dsn, minInterval: 2 * time.Second, maxInterval: time.Minute}
}

// Subscribe mở kết nối LISTEN và trả về channel sự kiện. Channel bị đóng khi ctx bị hủy.
func (l *ChangeListener) Subscribe(ctx context.Context) (<-chan domain.ChangeEvent, error) {
	listener := pq.NewListener(l.dsn, l.minInterval, l.maxInterval, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnectionAttemptFailed:
			log.Printf("ChangeListener: kết nối LISTEN thất bại: %v", err)
		case pq.ListenerEventDisconnected:
			log.Printf("ChangeListener: mất kết nối LISTEN: %v", err)
		case pq.ListenerEventReconnected:
			log.Println("ChangeListener: đã kết nối lại LISTEN")
		}
	})
	if err := listener.Listen(ChangeChannel); err != nil {
		listener.Close()
		return nil, err
	}

	events := make(chan domain.ChangeEvent, 64)
	go func() {
		defer close(events)
		defer listener.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case n := <-listener.Notify:
				// n == nil sau khi kết nối lại; các thông báo trong lúc mất kết nối đã bị mất,
				// vòng polling sẽ bù lại.
				if n == nil {
					continue
				}
				var event domain.ChangeEvent
				if err := json.Unmarshal([]byte(n.Extra), &event); err != nil {
					log.Printf("ChangeListener: payload không hợp lệ trên kênh %s: %v", n.Channel, err)
					continue
				}
				select {
				case events <- event:
				case <-ctx.Done():
					return
				}
			case <-time.After(90 * time.Second):
				go listener.Ping()
			}
		}
	}()
	return events, nil
}
