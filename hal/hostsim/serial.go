package hostsim

import (
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// Serial is a hal.Serial backed by a real pipe and direct unix.Read /
// unix.Write syscalls, moving bytes on and off the simulated wire without
// going through buffered os.File I/O.
type Serial struct {
	outFd int

	mu  sync.Mutex
	buf []byte

	inR, inW int

	plic   *PLIC
	irqSrc uint32
}

// NewSerial creates a UART simulator that writes PutC bytes to outFd (use
// int(os.Stdout.Fd()) for a console) and reads injected input off an
// internal pipe, raising irqSrc on plic whenever a byte arrives.
func NewSerial(outFd int, plic *PLIC, irqSrc uint32) (*Serial, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return nil, err
	}
	s := &Serial{outFd: outFd, inR: fds[0], inW: fds[1], plic: plic, irqSrc: irqSrc}
	go s.readLoop()
	return s, nil
}

// NewConsoleSerial is NewSerial wired to the process's own stdout.
func NewConsoleSerial(plic *PLIC, irqSrc uint32) (*Serial, error) {
	return NewSerial(int(os.Stdout.Fd()), plic, irqSrc)
}

func (s *Serial) readLoop() {
	tmp := make([]byte, 64)
	for {
		n, err := unix.Read(s.inR, tmp)
		if err != nil {
			return
		}
		if n <= 0 {
			continue
		}
		s.mu.Lock()
		s.buf = append(s.buf, tmp[:n]...)
		s.mu.Unlock()
		if s.plic != nil {
			s.plic.Raise(s.irqSrc)
		}
	}
}

// PutC writes one byte to the serial line.
func (s *Serial) PutC(b byte) {
	unix.Write(s.outFd, []byte{b})
}

// GetC returns the next buffered input byte, if any.
func (s *Serial) GetC() (byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.buf) == 0 {
		return 0, false
	}
	b := s.buf[0]
	s.buf = s.buf[1:]
	return b, true
}

// HasInput reports whether GetC would return a byte right now.
func (s *Serial) HasInput() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf) > 0
}

// InputIRQSource returns the external-interrupt source id this serial
// line raises on new input.
func (s *Serial) InputIRQSource() uint32 { return s.irqSrc }

// Inject simulates a byte arriving on the wire, for tests and for driving
// the board without real console input.
func (s *Serial) Inject(data []byte) error {
	_, err := unix.Write(s.inW, data)
	return err
}

// Close releases the pipe backing this simulator.
func (s *Serial) Close() error {
	unix.Close(s.inW)
	return unix.Close(s.inR)
}
