// SPDX-License-Identifier: EPL-2.0

package player_test

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ik5/audplay/audio"
	"github.com/ik5/audplay/internal/audiotest"
	"github.com/ik5/audplay/output"
	"github.com/ik5/audplay/player"
	"github.com/ik5/audplay/vfs"
)

func Example() {
	stream := audiotest.NewSineStream(8000, 1, 10, 800, 440)

	reg := audio.NewRegistry()
	reg.Register(&audiotest.Backend{Magic: "SINE", Stream: stream})

	sink := audiotest.NewSink()
	nop := zerolog.Nop()

	p := player.New(player.Options{
		Registry: reg,
		NewSink:  func() output.Sink { return sink },
		Logger:   &nop,
		Open: func(_ context.Context, name string) (vfs.File, error) {
			return vfs.NewMemFile(name, []byte("SINE"), false), nil
		},
	})

	if err := p.Play("tone.sine"); err != nil {
		fmt.Println(err)
		return
	}
	<-p.Done()

	fmt.Println("eof:", p.EOF())
	fmt.Println("duration:", p.Info().Duration)
	fmt.Println("written:", sink.WrittenTime().Round(time.Millisecond))
	// Output:
	// eof: true
	// duration: 1s
	// written: 1s
}
