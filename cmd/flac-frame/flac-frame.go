// flac-frame decodes the audio frames of FLAC files and reports decoding
// statistics. It records a CPU profile, for benchmarking the frame decoder
// against real world streams.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime/pprof"

	stderrors "errors"

	"github.com/sourrust/flac"
	"github.com/sourrust/flac/frame"
)

func main() {
	f, err := os.Create("flac-frame.pprof")
	if err != nil {
		log.Println(err)
	}
	defer f.Close()
	if err := pprof.StartCPUProfile(f); err != nil {
		log.Println(err)
	}
	defer pprof.StopCPUProfile()

	flag.Parse()
	for _, path := range flag.Args() {
		if err := flacFrame(path); err != nil {
			log.Println(err)
		}
	}
}

// flacFrame decodes every audio frame of the given FLAC file and prints the
// number of frames and samples decoded.
func flacFrame(path string) error {
	stream, err := flac.Open(path)
	if err != nil {
		return err
	}
	defer stream.Close()

	var nframes, nunverified int
	var nsamples uint64
	for {
		f, err := stream.ParseNext()
		if err != nil {
			if err == io.EOF {
				break
			}
			if stderrors.Is(err, frame.ErrIntegrity) {
				nunverified++
			} else {
				return err
			}
		}
		nframes++
		nsamples += uint64(f.BlockSize)
	}
	fmt.Printf("%s: %d frames, %d samples", path, nframes, nsamples)
	if nunverified > 0 {
		fmt.Printf(", %d frames with CRC-16 mismatch", nunverified)
	}
	fmt.Println()
	return nil
}
