package enums

import "fmt"

// ChannelID identifies a sales channel within an allotment configuration.
type ChannelID string

const (
	ChannelDirect     ChannelID = "direct"
	ChannelBookingCom ChannelID = "booking_com"
	ChannelExpedia    ChannelID = "expedia"
	ChannelAirbnb     ChannelID = "airbnb"
	ChannelAgoda      ChannelID = "agoda"
	ChannelHotelsCom  ChannelID = "hotels_com"
	ChannelCustom     ChannelID = "custom"
)

var validChannelIDs = []ChannelID{
	ChannelDirect,
	ChannelBookingCom,
	ChannelExpedia,
	ChannelAirbnb,
	ChannelAgoda,
	ChannelHotelsCom,
	ChannelCustom,
}

// String implements fmt.Stringer.
func (c ChannelID) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ChannelID.
func (c ChannelID) IsValid() bool {
	for _, candidate := range validChannelIDs {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseChannelID converts raw input into a ChannelID.
func ParseChannelID(value string) (ChannelID, error) {
	for _, candidate := range validChannelIDs {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid channel id %q", value)
}
