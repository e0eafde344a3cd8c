package persistence

import "time"

// Date and clock values are stored as text: dates as YYYY-MM-DD, times of day as HH:MM.
// Both orderings match their lexical order.

// Room represents a meeting room catalog entry.
type Room struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Capacity     int       `db:"capacity"`
	EquipmentIDs []string  `db:"-"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Equipment represents an item a room may provide.
type Equipment struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

// Profile represents the stored identity of a principal.
type Profile struct {
	ID        string    `db:"id"`
	FullName  string    `db:"full_name"`
	Division  string    `db:"division"`
	Email     string    `db:"email"`
	Phone     string    `db:"phone"`
	Role      string    `db:"role"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Booking represents a room reservation row.
type Booking struct {
	ID               string    `db:"id"`
	RoomID           string    `db:"room_id"`
	UserID           string    `db:"user_id"`
	Date             string    `db:"booking_date"`
	StartTime        string    `db:"start_time"`
	EndTime          string    `db:"end_time"`
	Status           string    `db:"status"`
	Title            string    `db:"title"`
	Purpose          string    `db:"purpose"`
	OfficerInCharge  string    `db:"officer_in_charge"`
	Division         string    `db:"division"`
	ParticipantCount int       `db:"participant_count"`
	ContactEmail     string    `db:"contact_email"`
	ContactPhone     string    `db:"contact_phone"`
	EquipmentNeeded  string    `db:"equipment_needed"`
	AdminComments    string    `db:"admin_comments"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}
