// README: Live position fan-out to Firebase RTDB.
package trip

import (
	"context"
	"fmt"
	"time"

	"firebase.google.com/go/v4/db"

	"gavra/internal/types"
)

// rtdbPositionEntry mirrors a driver entry under the /vozac_lokacije RTDB
// node; the passenger app listens to it directly.
type rtdbPositionEntry struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Timestamp int64   `json:"timestamp"`
}

// RTDBPublisher writes driver positions to Firebase RTDB so passenger apps
// can subscribe without hitting the API.
type RTDBPublisher struct {
	client *db.Client
}

func NewRTDBPublisher(client *db.Client) *RTDBPublisher {
	return &RTDBPublisher{client: client}
}

func (p *RTDBPublisher) Publish(ctx context.Context, driverID types.ID, pos types.Point, at time.Time) error {
	ref := p.client.NewRef("vozac_lokacije/" + string(driverID))
	entry := rtdbPositionEntry{Lat: pos.Lat, Lng: pos.Lng, Timestamp: at.UnixMilli()}
	if err := ref.Set(ctx, entry); err != nil {
		return fmt.Errorf("publishing position for %s: %w", string(driverID), err)
	}
	return nil
}
