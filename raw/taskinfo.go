package raw

import "encoding/binary"

// TaskInfoSize is the fixed record size GET_TASKS writes per task: id,
// name, state, priority, sp, and wake_time packed the same little-endian,
// fixed-width way the rest of the kernel/task ABI is.
const (
	TaskInfoSize = 40
	taskNameLen  = 16
)

// PutTaskInfo encodes one GET_TASKS record into b[:TaskInfoSize].
func PutTaskInfo(b []byte, id int, name string, state int, priority int, sp uint32, wakeTime uint64) {
	binary.LittleEndian.PutUint32(b[0:], uint32(id))
	var nb [taskNameLen]byte
	copy(nb[:], name)
	copy(b[4:4+taskNameLen], nb[:])
	binary.LittleEndian.PutUint32(b[4+taskNameLen:], uint32(state))
	binary.LittleEndian.PutUint32(b[8+taskNameLen:], uint32(priority))
	binary.LittleEndian.PutUint32(b[12+taskNameLen:], sp)
	binary.LittleEndian.PutUint64(b[16+taskNameLen:], wakeTime)
}
