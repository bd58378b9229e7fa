package model

import "time"

// BookingStatus is the lifecycle state of a tee-time booking.
type BookingStatus string

const (
	BookingBooked    BookingStatus = "booked"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// Course types offered by the club.
const (
	Course9  = "9"
	Course18 = "18"
)

// Booking records a tee-time reservation together with its claims on
// caddies and equipment.  The booking does not own the lifecycle of the
// referenced assets or caddies; it only holds the identifiers whose
// status was moved to booked on its behalf.
//
// Fields:
//  ID           – primary key identifier.
//  UserID       – owner of the booking.
//  Date         – play date (UTC midnight).
//  TimeSlot     – tee time label, e.g. "07:30".
//  CourseType   – "9" or "18" holes.
//  Players      – group size, 1..4.
//  GroupName    – label shown on the starter sheet.
//  CaddyIDs     – assigned caddies.
//  GolfCartIDs  – reserved golf carts.
//  GolfBagIDs   – reserved golf bags.
//  GolfCartQty  – carts requested at creation.
//  GolfBagQty   – bags requested at creation.
//  TotalPrice   – price in minor currency units.
//  IsPaid       – payment flag (payment itself is handled elsewhere).
//  Status       – booked, completed or cancelled.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Booking struct {
	ID          uint64        `json:"id"`
	UserID      uint64        `json:"user_id"`
	Date        time.Time     `json:"date"`
	TimeSlot    string        `json:"time_slot"`
	CourseType  string        `json:"course_type"`
	Players     int           `json:"players"`
	GroupName   string        `json:"group_name"`
	CaddyIDs    []uint64      `json:"caddy_ids"`
	GolfCartIDs []uint64      `json:"golf_cart_ids"`
	GolfBagIDs  []uint64      `json:"golf_bag_ids"`
	GolfCartQty int           `json:"golf_cart_qty"`
	GolfBagQty  int           `json:"golf_bag_qty"`
	TotalPrice  int64         `json:"total_price"`
	IsPaid      bool          `json:"is_paid"`
	Status      BookingStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// AssetIDs returns carts followed by bags.
func (b *Booking) AssetIDs() []uint64 {
	ids := make([]uint64, 0, len(b.GolfCartIDs)+len(b.GolfBagIDs))
	ids = append(ids, b.GolfCartIDs...)
	return append(ids, b.GolfBagIDs...)
}

// HasCaddy reports whether id is among the assigned caddies.
func (b *Booking) HasCaddy(id uint64) bool {
	return containsID(b.CaddyIDs, id)
}

// HasGolfCart reports whether id is among the reserved carts.
func (b *Booking) HasGolfCart(id uint64) bool {
	return containsID(b.GolfCartIDs, id)
}

func containsID(ids []uint64, id uint64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
