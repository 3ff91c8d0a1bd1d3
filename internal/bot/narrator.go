package bot

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"courierbot/internal/models"
)

// Narrator renders one human-readable status line per order. Real dispatch
// tracking is out of scope; the phase phrase is picked at random, while the
// arrival estimate comes from the order's receiving window.
type Narrator struct {
	rng *rand.Rand
	now func() time.Time
}

func NewNarrator(rng *rand.Rand, now func() time.Time) *Narrator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if now == nil {
		now = time.Now
	}
	return &Narrator{rng: rng, now: now}
}

// Narrate formats a status line for the order.
func (n *Narrator) Narrate(order *models.Order) string {
	phases := []string{
		" was dispatched and is on time.\n",
		" is scheduled to be dispatched on " + coalesce(order.PickupWindow.End, order.PickupWindow.Value) + "\n",
		" was picked up and is on time.\n",
		"is scheduled to be picked up on " + coalesce(order.PickupWindow.Value, order.PickupWindow.End),
	}
	phase := phases[n.rng.Intn(len(phases))]

	return fmt.Sprintf("Your Order from %s to %s%s.\nIt is scheduled to arrive at the destination %s",
		order.OriginAddress, order.DestinationAddress, phase, n.arrivalPhrase(order))
}

func (n *Narrator) arrivalPhrase(order *models.Order) string {
	raw := coalesce(order.ReceivingWindow.Value, order.ReceivingWindow.End)
	arrival, err := time.ParseInLocation(models.WindowValueLayout, raw, n.now().Location())
	if err != nil {
		if arrival, err = time.ParseInLocation("2006-01-02", raw, n.now().Location()); err != nil {
			return raw
		}
	}

	phrase := calendarPhrase(arrival, n.now())
	// "Tomorrow at 9:00 AM" reads as "Tomorrow by 9:00 AM" for an arrival
	// estimate.
	return strings.Replace(phrase, " at ", " by ", 1)
}

func coalesce(first, second string) string {
	if first != "" {
		return first
	}
	return second
}

// calendarPhrase renders t relative to now: Today/Tomorrow/Yesterday, a bare
// weekday within the coming week, "Last <weekday>" within the past week, and
// a plain date beyond that.
func calendarPhrase(t, now time.Time) string {
	clock := t.Format("3:04 PM")

	startOfDay := func(x time.Time) time.Time {
		return time.Date(x.Year(), x.Month(), x.Day(), 0, 0, 0, 0, x.Location())
	}
	days := int(startOfDay(t).Sub(startOfDay(now)).Hours() / 24)

	switch {
	case days == 0:
		return "Today at " + clock
	case days == 1:
		return "Tomorrow at " + clock
	case days == -1:
		return "Yesterday at " + clock
	case days > 1 && days < 7:
		return t.Weekday().String() + " at " + clock
	case days < -1 && days > -7:
		return "Last " + t.Weekday().String() + " at " + clock
	default:
		return t.Format("01/02/2006")
	}
}
