// Package audio records mono signed 16-bit PCM from a PortAudio input device.
package audio

import (
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// DeviceName selects the system default input device. It is not configurable.
const DeviceName = "default"

// chunkFrames is the PortAudio host buffer size; reads are assembled from chunks.
const chunkFrames = 1024

// ErrShortRead is returned when the device delivers fewer frames than requested.
var ErrShortRead = errors.New("short read from capture device")

// chunkSource fills a fixed buffer with the next block of frames.
type chunkSource interface {
	Read() error
}

// Device is an opened capture stream: interleaved, S16 native-endian, one channel.
type Device struct {
	stream     *portaudio.Stream
	source     chunkSource
	chunk      []int16
	sampleRate int
	running    bool
}

// Open initializes PortAudio and configures the named input device at sampleRate.
func Open(name string, sampleRate int) (*Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	info, err := lookupInput(name)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}

	params := portaudio.LowLatencyParameters(info, nil)
	params.Input.Channels = 1
	params.SampleRate = float64(sampleRate)
	params.FramesPerBuffer = chunkFrames

	chunk := make([]int16, chunkFrames)
	stream, err := portaudio.OpenStream(params, chunk)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("open capture stream on %q at %d Hz: %w", info.Name, sampleRate, err)
	}
	return &Device{
		stream:     stream,
		source:     stream,
		chunk:      chunk,
		sampleRate: sampleRate,
	}, nil
}

func lookupInput(name string) (*portaudio.DeviceInfo, error) {
	if name == "" || name == DeviceName {
		info, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("default input device: %w", err)
		}
		return info, nil
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	for _, info := range devices {
		if info.Name == name && info.MaxInputChannels > 0 {
			return info, nil
		}
	}
	return nil, fmt.Errorf("input device %q not found", name)
}

// SampleRate is the rate the stream was configured with.
func (d *Device) SampleRate() int { return d.sampleRate }

// Prepare resets the stream so the next Read starts a fresh recording.
func (d *Device) Prepare() error {
	if d.running {
		if err := d.stream.Abort(); err != nil {
			return fmt.Errorf("reset capture stream: %w", err)
		}
		d.running = false
	}
	if err := d.stream.Start(); err != nil {
		return fmt.Errorf("start capture stream: %w", err)
	}
	d.running = true
	return nil
}

// Read blocks until len(buf) frames have been captured.
func (d *Device) Read(buf []int16) (int, error) {
	return readFrames(d.source, d.chunk, buf)
}

// Drop stops the stream without draining pending frames.
func (d *Device) Drop() error {
	if !d.running {
		return nil
	}
	d.running = false
	if err := d.stream.Abort(); err != nil {
		return fmt.Errorf("stop capture stream: %w", err)
	}
	return nil
}

// Close releases the stream and PortAudio.
func (d *Device) Close() error {
	if d.stream == nil {
		return nil
	}
	_ = d.Drop()
	err := d.stream.Close()
	d.stream = nil
	if termErr := portaudio.Terminate(); err == nil {
		err = termErr
	}
	return err
}

func readFrames(src chunkSource, chunk, buf []int16) (int, error) {
	n := 0
	for n < len(buf) {
		if err := src.Read(); err != nil {
			return n, fmt.Errorf("read capture stream: %w", err)
		}
		copied := copy(buf[n:], chunk)
		if copied == 0 {
			return n, ErrShortRead
		}
		n += copied
	}
	return n, nil
}
