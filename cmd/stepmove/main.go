package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/obulka/electricipy/pigpio"
	"github.com/obulka/electricipy/stepper"
)

var (
	addr       = flag.String("addr", pigpio.DefaultAddr, "pigpio daemon address (host:port)")
	serialDev  = flag.String("serial", "", "Serial device for a serial-linked daemon (overrides -addr)")
	baud       = flag.Int("baud", 115200, "Baud rate for the serial link")
	stepPin    = flag.Int("step-pin", 18, "Step pulse GPIO")
	dirPin     = flag.Int("dir-pin", 4, "Direction GPIO")
	enablePin  = flag.Int("enable-pin", 17, "Enable GPIO (active low)")
	microsteps = flag.Int("microsteps", 64, "Microsteps per full step (8, 16, 32 or 64)")
	angle      = flag.Float64("angle", 360, "Degrees to move (negative for clockwise)")
	seconds    = flag.Float64("seconds", 2, "Seconds to move over")
)

func main() {
	flag.Parse()

	transport, err := openTransport()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	client := pigpio.NewClient(transport)
	defer client.Close()

	driver, err := stepper.NewTMC2209(stepper.DriverConfig{
		StepPin:    uint8(*stepPin),
		DirPin:     uint8(*dirPin),
		EnablePin:  uint8(*enablePin),
		Microsteps: *microsteps,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	motors, err := stepper.NewController(client, client, driver)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer motors.Close()

	// Ctrl-C stops the move early; the deferred Close still parks the
	// motor pins.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	window := time.Duration(*seconds * float64(time.Second))
	fmt.Printf("Moving %v degrees over %v...\n", *angle, window)

	result, err := motors.MoveByAnglesInTime(ctx, []float64{*angle}, window)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Move %s\n", result)
}

func openTransport() (pigpio.Transport, error) {
	if *serialDev != "" {
		cfg := pigpio.DefaultSerialConfig(*serialDev)
		cfg.Baud = *baud
		return pigpio.OpenSerial(cfg)
	}
	return pigpio.DialTCP(*addr)
}
