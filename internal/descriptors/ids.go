package descriptors

// DescID identifies a descriptor inside the table arena.
type DescID uint32

// NoDescID marks the absence of a descriptor reference.
const NoDescID DescID = 0

// IsValid reports whether the ID refers to an allocated descriptor.
func (id DescID) IsValid() bool { return id != NoDescID }
