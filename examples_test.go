package cexec_test

import (
	"context"
	"fmt"
	"time"

	"github.com/ruffel/cexec"
	"github.com/ruffel/cexec/providers/mock"
)

func ExampleExecutor_dryRun() {
	e := cexec.NewExecutor(mock.New(), cexec.WithDryRun(true))
	ctx := context.Background()

	_, _ = e.Execute(ctx, "network create", []string{"network", "create", "app-net"})
	_, _ = e.Execute(ctx, "run", []string{"run", "-d", "--name", "web", "-e", "GREETING=hello world", "nginx"})

	fmt.Print(e.Log().Preview())
	// Output:
	// [1] docker network create app-net (dry-run)
	// [2] docker run -d --name web -e 'GREETING=hello world' nginx (dry-run)
}

func ExampleFormatCommandLine() {
	fmt.Println(cexec.FormatCommandLine("docker", []string{"exec", "web", "sh", "-c", "echo $HOME"}))
	fmt.Println(cexec.FormatCommandLine("podman", []string{"run", "--label", "", "alpine"}))
	// Output:
	// docker exec web sh -c 'echo $HOME'
	// podman run --label '' alpine
}

func ExampleBackoff() {
	b := cexec.Exponential(100*time.Millisecond, time.Second, 2)

	for attempt := 1; attempt <= 5; attempt++ {
		fmt.Println(attempt, b.DelayFor(attempt))
	}
	// Output:
	// 1 100ms
	// 2 200ms
	// 3 400ms
	// 4 800ms
	// 5 1s
}

func ExampleParseBackoff() {
	b, err := cexec.ParseBackoff("linear:10ms,5ms")
	if err != nil {
		fmt.Println(err)

		return
	}

	fmt.Println(b, b.DelayFor(3))
	// Output:
	// linear:10ms,5ms 20ms
}
