// axonsh is a ps-style inspector: it boots a small demo board (an idle task
// and one sleeping worker), then prints the task table on a fixed interval
// until interrupted.
// Formatting text belongs here rather than in the sched package, which
// only deals in data.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/nyfeu-axon/axonk/hal/hostsim"
	"github.com/nyfeu-axon/axonk/kernel"
)

const serialIRQSource = 1

func main() {
	log.SetFlags(log.Lmicroseconds)

	interval := flag.Duration("interval", 2*time.Second, "how often to print the task table")
	once := flag.Bool("once", false, "print one table and exit instead of looping")
	flag.Parse()

	clock := hostsim.NewClock()
	timer := hostsim.NewTimer(hostsim.CyclesPerMs)
	plic := hostsim.NewPLIC()
	serial, err := hostsim.NewConsoleSerial(plic, serialIRQSource)
	if err != nil {
		log.Fatalf("NewConsoleSerial: %v", err)
	}

	k, err := kernel.New(kernel.Options{
		CyclesPerMs: hostsim.CyclesPerMs,
		TickCycles:  hostsim.CyclesPerMs * 10,
		IRQSources:  8,
		Serial:      serial,
		Clock:       clock,
		Timer:       timer,
		PLIC:        plic,
	})
	if err != nil {
		log.Fatalf("kernel.New: %v", err)
	}
	defer k.Close()

	if _, err := k.Create("idle", 0, func(t *kernel.Task) {
		for {
			t.Sleep(1000)
		}
	}); err != nil {
		log.Fatalf("create idle: %v", err)
	}
	if _, err := k.Create("worker", 1, func(t *kernel.Task) {
		for {
			t.Sleep(300)
		}
	}); err != nil {
		log.Fatalf("create worker: %v", err)
	}

	stop := make(chan struct{})
	go k.Run(stop)
	defer close(stop)

	if *once {
		printTable(k)
		return
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	printTable(k)
	for {
		select {
		case <-ticker.C:
			printTable(k)
		case <-sigc:
			return
		}
	}
}

func printTable(k *kernel.Kernel) {
	snaps := k.Snapshot()
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].ID < snaps[j].ID })

	fmt.Printf("%-4s %-16s %-10s %-4s %-10s %s\n", "ID", "NAME", "STATE", "PRI", "SP", "WAKE")
	for _, s := range snaps {
		fmt.Printf("%-4d %-16s %-10s %-4d 0x%08x %d\n", s.ID, s.Name, s.State, s.Priority, s.SP, s.WakeTime)
	}
	fmt.Printf("free heap: %d bytes\n\n", k.FreeHeapBytes())
}
