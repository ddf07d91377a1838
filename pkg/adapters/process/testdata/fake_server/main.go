// fake_server behaves like a rendering server: it announces itself on stderr,
// then exits cleanly on interrupt.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	fmt.Fprintln(os.Stderr, "webPort=8080")

	select {
	case sig := <-sigs:
		fmt.Fprintf(os.Stderr, "received %s, shutting down\n", sig)
		time.Sleep(200 * time.Millisecond)
		os.Exit(0)
	case <-time.After(10 * time.Second):
		fmt.Println("timeout")
	}
}
