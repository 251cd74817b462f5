package domain

type HotelStatus string

const (
	HotelPending   HotelStatus = "pending"
	HotelApproved  HotelStatus = "approved"
	HotelRejected  HotelStatus = "rejected"
	HotelSuspended HotelStatus = "suspended"
)

type RoomClass string

const (
	RoomStandard     RoomClass = "standard"
	RoomDeluxe       RoomClass = "deluxe"
	RoomSuite        RoomClass = "suite"
	RoomPresidential RoomClass = "presidential"
)

func (c RoomClass) Valid() bool {
	switch c {
	case RoomStandard, RoomDeluxe, RoomSuite, RoomPresidential:
		return true
	}
	return false
}

type Hotel struct {
	ID            int64
	OwnerID       string
	Status        HotelStatus
	RoomTypes     []RoomType
	TotalBookings int64
	TotalRevenue  int64
}

// RoomType describes one room class of a hotel. AvailableRooms is a
// projection refreshed by the reconciler; TotalRooms is the capacity
// that admission control checks against.
type RoomType struct {
	Class          RoomClass
	NightlyRate    int64
	TotalRooms     int
	AvailableRooms int
}

func (h Hotel) RoomType(c RoomClass) (RoomType, bool) {
	for _, rt := range h.RoomTypes {
		if rt.Class == c {
			return rt, true
		}
	}
	return RoomType{}, false
}

func (h Hotel) Capacity(c RoomClass) (int, bool) {
	rt, ok := h.RoomType(c)
	if !ok {
		return 0, false
	}
	return rt.TotalRooms, true
}

func (h Hotel) Bookable() bool { return h.Status == HotelApproved }
