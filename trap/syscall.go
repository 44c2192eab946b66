package trap

// Syscall numbers carried in register slot A7. Numbering is contract-level
// only; any fixed, stable mapping between these names and A7 values works.
const (
	Yield = iota
	Write
	Sleep
	Lock
	Unlock
	GetTasks
	Peek
	Poke
	HeapInfo
	Malloc
	Free
	Defrag
	Suspend
	Resume
	FSCreate
	FSWrite
	FSRead
	FSList
	FSDelete
	FSFormat

	numSyscalls
)

var syscallNames = [numSyscalls]string{
	Yield:     "YIELD",
	Write:     "WRITE",
	Sleep:     "SLEEP",
	Lock:      "LOCK",
	Unlock:    "UNLOCK",
	GetTasks:  "GET_TASKS",
	Peek:      "PEEK",
	Poke:      "POKE",
	HeapInfo:  "HEAP_INFO",
	Malloc:    "MALLOC",
	Free:      "FREE",
	Defrag:    "DEFRAG",
	Suspend:   "SUSPEND",
	Resume:    "RESUME",
	FSCreate:  "FS_CREATE",
	FSWrite:   "FS_WRITE",
	FSRead:    "FS_READ",
	FSList:    "FS_LIST",
	FSDelete:  "FS_DELETE",
	FSFormat:  "FS_FORMAT",
}

// Name returns the syscall's contract-level name, or "UNKNOWN" for an
// out-of-range number. Used only for diagnostics.
func Name(n uint32) string {
	if n >= numSyscalls {
		return "UNKNOWN"
	}
	return syscallNames[n]
}
