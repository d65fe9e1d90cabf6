// Command tlsdemo exercises the thread-local storage library with two
// goroutines standing in for the original's creator/cloner pthreads:
// one thread fills its LSA page by page, a second clones it once writing
// is done and reads back what it inherited. Adapted from
// original_source/main.c's creator/cloner pair; semaphore handoff is
// replaced with a buffered channel, the Go-idiomatic equivalent.
package main

import (
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	tls "github.com/mrinalghosh/thread-local-storage"
	"github.com/mrinalghosh/thread-local-storage/internal/vmsys"
)

const pageCount = 2

func creator(ready chan<- tls.ThreadID, done <-chan struct{}) error {
	defer tls.Guard()
	tid := tls.CurrentThread()

	pageSize := vmsys.PageSize
	if rc := tls.Create(uint32(pageSize * pageCount)); rc != 0 {
		return fmt.Errorf("creator: tls.Create failed")
	}

	buf := make([]byte, pageSize)
	for i := 0; i < pageCount; i++ {
		for j := range buf {
			buf[j] = byte('0' + i)
		}
		if rc := tls.Write(uint32(i*pageSize), uint32(pageSize), buf); rc != 0 {
			return fmt.Errorf("creator: tls.Write page %d failed", i)
		}
	}

	ready <- tid
	<-done
	if rc := tls.Destroy(); rc != 0 {
		return fmt.Errorf("creator: tls.Destroy failed")
	}
	return nil
}

func cloner(ready <-chan tls.ThreadID, done chan<- struct{}) error {
	defer tls.Guard()
	tls.CurrentThread()

	creatorTID := <-ready
	if rc := tls.Clone(creatorTID); rc != 0 {
		return fmt.Errorf("cloner: tls.Clone failed")
	}

	pageSize := vmsys.PageSize
	buf := make([]byte, pageSize)
	for i := 0; i < pageCount; i++ {
		if rc := tls.Read(uint32(i*pageSize), uint32(pageSize), buf); rc != 0 {
			return fmt.Errorf("cloner: tls.Read page %d failed", i)
		}
		fmt.Printf("page %d: %c...\n", i, buf[0])
	}

	if rc := tls.Destroy(); rc != 0 {
		return fmt.Errorf("cloner: tls.Destroy failed")
	}
	close(done)
	return nil
}

func main() {
	ready := make(chan tls.ThreadID, 1)
	done := make(chan struct{})

	var g errgroup.Group
	g.Go(func() error { return creator(ready, done) })
	g.Go(func() error { return cloner(ready, done) })

	if err := g.Wait(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println("done ...")
}
