/*
This is an example of application that will use the
engine package to place decals on a model
*/
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/Stifutina/three-svg-decals/engine"
	"github.com/Stifutina/three-svg-decals/testbed"
)

func main() {
	tb, err := testbed.NewTestGame()
	if err != nil {
		panic(err)
	}

	engine, err := engine.New(tb.Game)
	if err != nil {
		panic(err)
	}

	if err := engine.Initialize(); err != nil {
		panic(err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// start shutdown goroutine
	go func() {
		// capture sigterm and other system call here
		<-sigCh
		_ = engine.Shutdown()
	}()

	// run engine
	if err := engine.Run(); err != nil {
		panic(err)
	}

	_ = engine.Shutdown()
}
