// stubborn_engine ignores interrupts so that only a kill stops it.
package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	signal.Ignore(syscall.SIGINT, syscall.SIGTERM)

	fmt.Println("rendering forever")

	for {
		time.Sleep(1 * time.Second)
	}
}
