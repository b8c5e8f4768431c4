// Package privilege implements the per-owner access matrix: two 2-bit
// fields packed into one integer, one for the archive owner and one for
// everybody else.
//
//	bit: 3    2     1    0
//	     other      owner
//	     read write read write
package privilege

// Mode is a packed privilege matrix as stored on an owner row.
type Mode uint8

// Default grants the owner read and write and everyone else read only.
const Default Mode = 0b1011

// Class is who is asking, relative to the archive.
type Class int

const (
	Owner Class = iota
	Other
)

// Access is what is being asked for.
type Access int

const (
	Read Access = iota
	Write
)

const (
	readBit  = 0b10
	writeBit = 0b01
)

func (c Class) offset() uint {
	if c == Owner {
		return 0
	}
	return 2
}

func (a Access) bit() Mode {
	if a == Read {
		return readBit
	}
	return writeBit
}

// FromStored returns the stored override, or Default when there is none.
func FromStored(v *int) Mode {
	if v == nil {
		return Default
	}
	return Mode(*v) & 0b1111
}

// Evaluate reports whether the class is granted the access.
func (m Mode) Evaluate(c Class, a Access) bool {
	b := a.bit()
	return (m>>c.offset())&b == b
}

// With returns m with the given permission set or cleared.
func (m Mode) With(c Class, a Access, allowed bool) Mode {
	b := a.bit() << c.offset()
	if allowed {
		return m | b
	}
	return m &^ b
}

func (m Mode) Int() int { return int(m) }

func (c Class) String() string {
	if c == Owner {
		return "owner"
	}
	return "other"
}

func (a Access) String() string {
	if a == Read {
		return "read"
	}
	return "write"
}
