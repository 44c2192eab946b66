package kernel

import "github.com/nyfeu-axon/axonk/minifs"

// fsErrCode and fsCodeErr translate between minifs's sentinel errors and
// the small negative return codes the FS_* syscalls hand back across the
// ecall ABI, which has no room for a Go error value. -1 is failCode, so the
// FS-specific codes start at -2.
func fsErrCode(err error) uint32 {
	switch err {
	case minifs.ErrExists:
		return uint32(int32(-2))
	case minifs.ErrNotFound:
		return uint32(int32(-3))
	case minifs.ErrNoInode:
		return uint32(int32(-4))
	case minifs.ErrDirFull:
		return uint32(int32(-5))
	case minifs.ErrTooLarge:
		return uint32(int32(-6))
	case minifs.ErrNameLen:
		return uint32(int32(-7))
	default:
		return failCode
	}
}

func fsCodeErr(code uint32) error {
	switch int32(code) {
	case 0:
		return nil
	case -2:
		return minifs.ErrExists
	case -3:
		return minifs.ErrNotFound
	case -4:
		return minifs.ErrNoInode
	case -5:
		return minifs.ErrDirFull
	case -6:
		return minifs.ErrTooLarge
	case -7:
		return minifs.ErrNameLen
	default:
		return errSyscallFailed
	}
}
