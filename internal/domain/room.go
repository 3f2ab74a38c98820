package domain

// DefaultRoomIcon is applied when a room is created without an icon.
const DefaultRoomIcon = "💬"

// Room is a durable chat room.
type Room struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
}

// CreateRoomRequest is the REST and gateway input for a new room.
type CreateRoomRequest struct {
	Name        string  `json:"name" binding:"required,min=1,max=255"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
}

// UpdateRoomRequest carries a partial room update. Nil fields are left as is.
type UpdateRoomRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
}

// RoomResponse is a room together with its live occupancy.
type RoomResponse struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
	Occupancy   int     `json:"occupancy"`
}

// ToResponse attaches an occupancy count to the room.
func (r *Room) ToResponse(occupancy int) RoomResponse {
	return RoomResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Icon:        r.Icon,
		Occupancy:   occupancy,
	}
}

// DefaultRooms are created at bootstrap when the registry is empty.
func DefaultRooms() []CreateRoomRequest {
	return []CreateRoomRequest{
		{Name: "General", Description: strPtr("General discussion room"), Icon: strPtr("💬")},
		{Name: "Random", Description: strPtr("Random topics and fun chat"), Icon: strPtr("🎲")},
	}
}

func strPtr(s string) *string {
	return &s
}
