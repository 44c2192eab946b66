// axonboard boots an AXON kernel with a handful of demo tasks and runs it
// until interrupted.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nyfeu-axon/axonk/hal/hostsim"
	"github.com/nyfeu-axon/axonk/kernel"
)

const serialIRQSource = 1

func main() {
	log.SetFlags(log.Lmicroseconds)

	heapSize := flag.Int("heap", 64*1024, "heap arena size in bytes")
	maxTasks := flag.Int("max-tasks", 16, "task pool capacity")
	tickMs := flag.Uint64("tick-ms", 10, "scheduler time slice in milliseconds")
	mmap := flag.Bool("mmap", false, "back the heap arena with an anonymous host mmap region")
	flag.Parse()

	clock := hostsim.NewClock()
	timer := hostsim.NewTimer(hostsim.CyclesPerMs)
	plic := hostsim.NewPLIC()
	serial, err := hostsim.NewConsoleSerial(plic, serialIRQSource)
	if err != nil {
		log.Fatalf("NewConsoleSerial: %v", err)
	}

	opts := kernel.Options{
		MaxTasks:    *maxTasks,
		HeapSize:    *heapSize,
		CyclesPerMs: hostsim.CyclesPerMs,
		TickCycles:  hostsim.CyclesPerMs * *tickMs,
		IRQSources:  8,
		MmapHeap:    *mmap,
		Serial:      serial,
		Clock:       clock,
		Timer:       timer,
		PLIC:        plic,
	}

	k, err := kernel.New(opts)
	if err != nil {
		log.Fatalf("kernel.New: %v", err)
	}
	defer k.Close()
	k.SetResetFunc(func() {
		log.Fatal("axonboard: kernel reset requested after fatal trap")
	})

	if _, err := k.Create("idle", 0, func(t *kernel.Task) {
		for {
			t.Sleep(1000)
		}
	}); err != nil {
		log.Fatalf("create idle: %v", err)
	}
	if _, err := k.Create("ping", 1, func(t *kernel.Task) {
		for {
			t.WriteString("ping\n")
			t.Sleep(500)
		}
	}); err != nil {
		log.Fatalf("create ping: %v", err)
	}
	if _, err := k.Create("pong", 1, func(t *kernel.Task) {
		for {
			t.WriteString("pong\n")
			t.Sleep(750)
		}
	}); err != nil {
		log.Fatalf("create pong: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	stop := make(chan struct{})
	go k.Run(stop)

	fmt.Fprintf(os.Stderr, "axonboard: running, press Ctrl-C to stop\n")
	<-sigc
	close(stop)
}
