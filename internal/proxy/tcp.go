package proxy

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

// runTCP starts a TCP relay for this edge: each accepted connection is
// dialed through to the endpoint resolveEndpoint picks (a registered
// original destination, else the next endpoint in round-robin) and piped
// bidirectionally until either side closes or ctx is cancelled.
func (f *Forwarder) runTCP(ctx context.Context) error {
	ln, err := f.getListener()
	if err != nil {
		return fmt.Errorf("proxy %s (%s): listen: %w", f.Authority, f.Direction, err)
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	f.logger().Info("tcp forwarder listening", "authority", f.Authority, "direction", f.Direction.String(), "addr", ln.Addr().String())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("proxy %s (%s): accept: %w", f.Authority, f.Direction, err)
		}
		go f.handleTCPConn(ctx, conn)
	}
}

func (f *Forwarder) handleTCPConn(ctx context.Context, client net.Conn) {
	start := time.Now()
	endpoint := f.resolveEndpoint()

	target, err := net.DialTimeout("tcp", endpoint, 5*time.Second)
	if err != nil {
		client.Close()
		f.logger().Warn("tcp dial failed", "authority", f.Authority, "endpoint", endpoint, "err", err)
		return
	}

	// Close both sides when ctx is cancelled.
	go func() {
		<-ctx.Done()
		client.Close()
		target.Close()
	}()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		io.Copy(target, client)
		if tc, ok := target.(*net.TCPConn); ok {
			tc.CloseWrite()
		}
	}()

	go func() {
		defer wg.Done()
		io.Copy(client, target)
		if tc, ok := client.(*net.TCPConn); ok {
			tc.CloseWrite()
		}
	}()

	wg.Wait()
	client.Close()
	target.Close()

	f.logger().Debug("tcp connection closed", "authority", f.Authority, "endpoint", endpoint, "duration", time.Since(start))
}
