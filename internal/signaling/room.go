package signaling

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultMaxRoomCodeLength bounds room codes after normalization.
const DefaultMaxRoomCodeLength = 64

var ErrInvalidRoomCode = errors.New("invalid room code")

// NormalizeRoomCode trims and lower-cases a room code so that spellings
// differing only in case or surrounding whitespace name the same room.
func NormalizeRoomCode(code string, maxLen int) (string, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return "", ErrInvalidRoomCode
	}
	if maxLen > 0 && len(code) > maxLen {
		return "", ErrInvalidRoomCode
	}
	return code, nil
}

// Room is a set of identities that want to reach each other.
type Room struct {
	Code      string
	CreatedAt time.Time
	members   map[string]struct{}
}

func (r *Room) memberIDs(except string) []string {
	ids := make([]string, 0, len(r.members))
	for id := range r.members {
		if id != except {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// RoomInfo is a read-only view of a room.
type RoomInfo struct {
	Code      string    `json:"room"`
	Members   int       `json:"members"`
	CreatedAt time.Time `json:"createdAt"`
}

// Deliverer sends a frame to the connection holding an identity.
type Deliverer interface {
	Deliver(to string, frame []byte) bool
}

// JoinResult is what a joiner learns from Join.
type JoinResult struct {
	Room string
	// Peers are the members present before the joiner was inserted.
	Peers []string
	// Rejoined is set when the identity already was in the room and
	// nothing changed.
	Rejoined bool
}

// Directory is the room membership state machine. Rooms exist only while
// they have members.
type Directory struct {
	mu        sync.Mutex
	rooms     map[string]*Room
	locations map[string]string // identity -> room code
	maxLen    int
	out       Deliverer
}

func NewDirectory(maxRoomCodeLen int, out Deliverer) *Directory {
	if maxRoomCodeLen <= 0 {
		maxRoomCodeLen = DefaultMaxRoomCodeLength
	}
	return &Directory{
		rooms:     make(map[string]*Room),
		locations: make(map[string]string),
		maxLen:    maxRoomCodeLen,
		out:       out,
	}
}

// Join puts id into the room named by code. Existing members are told about
// the newcomer before Join returns; the caller acknowledges the joiner.
func (d *Directory) Join(id, code string) (JoinResult, error) {
	code, err := NormalizeRoomCode(code, d.maxLen)
	if err != nil {
		return JoinResult{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if current, ok := d.locations[id]; ok {
		if current == code {
			return JoinResult{Room: code, Peers: d.rooms[code].memberIDs(id), Rejoined: true}, nil
		}
		d.leaveLocked(id, current)
	}

	room, ok := d.rooms[code]
	if !ok {
		room = &Room{Code: code, CreatedAt: time.Now(), members: make(map[string]struct{})}
		d.rooms[code] = room
	}
	peers := room.memberIDs(id)

	room.members[id] = struct{}{}
	d.locations[id] = code

	frame := encodePeerJoined(code, id)
	for _, peer := range peers {
		d.out.Deliver(peer, frame)
	}
	return JoinResult{Room: code, Peers: peers}, nil
}

// Leave removes id from the room. It is a no-op when the room does not exist
// or id is not a member.
func (d *Directory) Leave(id, code string) bool {
	code, err := NormalizeRoomCode(code, d.maxLen)
	if err != nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.leaveLocked(id, code)
}

// LeaveAll removes id from whatever room it is in.
func (d *Directory) LeaveAll(id string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	code, ok := d.locations[id]
	if !ok {
		return "", false
	}
	return code, d.leaveLocked(id, code)
}

func (d *Directory) leaveLocked(id, code string) bool {
	room, ok := d.rooms[code]
	if !ok {
		return false
	}
	if _, member := room.members[id]; !member {
		return false
	}
	delete(room.members, id)
	delete(d.locations, id)

	if len(room.members) == 0 {
		delete(d.rooms, code)
		return true
	}
	frame := encodePeerLeft(code, id)
	for _, peer := range room.memberIDs("") {
		d.out.Deliver(peer, frame)
	}
	return true
}

// RoomOf returns the room id currently belongs to.
func (d *Directory) RoomOf(id string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	code, ok := d.locations[id]
	return code, ok
}

// Members lists the identities in a room, sorted.
func (d *Directory) Members(code string) []string {
	code, err := NormalizeRoomCode(code, d.maxLen)
	if err != nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	room, ok := d.rooms[code]
	if !ok {
		return nil
	}
	return room.memberIDs("")
}

// Rooms returns every live room ordered by code.
func (d *Directory) Rooms() []RoomInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]RoomInfo, 0, len(d.rooms))
	for _, room := range d.rooms {
		out = append(out, RoomInfo{Code: room.Code, Members: len(room.members), CreatedAt: room.CreatedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rooms)
}
