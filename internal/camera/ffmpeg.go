package camera

// ffmpeg.go acquires a real camera through the ffmpeg binary. One ffmpeg
// process is started per acquisition and streams MJPEG to stdout; the most
// recent complete JPEG is kept as the current frame. Closing the device
// kills the process, which releases the camera.

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultFirstFrameTimeout bounds how long Open waits for the first frame.
const DefaultFirstFrameTimeout = 5 * time.Second

// closeDrainTimeout bounds how long Close waits for the stream to end
// after killing ffmpeg.
const closeDrainTimeout = 2 * time.Second

// maxFrameBytes bounds a single MJPEG frame held by the scanner.
const maxFrameBytes = 64 << 20

var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// FFmpegOpener captures from a local camera with ffmpeg.
type FFmpegOpener struct {
	// Device is the input name, e.g. /dev/video0 (v4l2) or "0" (avfoundation).
	Device string
	// InputFormat is the ffmpeg demuxer: v4l2, avfoundation or dshow.
	InputFormat string
	// FirstFrameTimeout defaults to DefaultFirstFrameTimeout.
	FirstFrameTimeout time.Duration
}

// NewFFmpegOpener returns an opener for device using inputFormat.
func NewFFmpegOpener(device, inputFormat string) *FFmpegOpener {
	return &FFmpegOpener{Device: device, InputFormat: inputFormat}
}

// Open starts ffmpeg with c mapped to -video_size and waits for the first
// frame. FacingMode cannot be expressed to ffmpeg; the configured device is
// taken to be the environment-facing one.
func (o *FFmpegOpener) Open(ctx context.Context, c Constraints) (Device, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg not found: %v", ErrDeviceUnavailable, err)
	}
	if o.InputFormat == "v4l2" {
		if _, err := os.Stat(o.Device); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}
	}

	args := ffmpegArgs(o.InputFormat, o.Device, c)
	log.Debug().Str("ffmpeg", ffmpegPath).Strs("args", args).Msg("Starting camera capture")

	cmd := exec.Command(ffmpegPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open ffmpeg stdout: %w", err)
	}
	stderr := &tailBuffer{limit: 4096}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start ffmpeg: %v", ErrDeviceUnavailable, err)
	}

	d := &ffmpegDevice{
		cmd:    cmd,
		first:  make(chan struct{}),
		exited: make(chan struct{}),
		info: DeviceInfo{
			Kind:   "ffmpeg",
			Name:   o.Device,
			Width:  c.Width,
			Height: c.Height,
		},
	}
	go d.readLoop(stdout)

	timeout := o.FirstFrameTimeout
	if timeout <= 0 {
		timeout = DefaultFirstFrameTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-d.first:
		log.Info().
			Str("device", o.Device).
			Str("constraints", c.String()).
			Msg("Camera acquired")
		return d, nil
	case <-d.exited:
		d.Close()
		return nil, fmt.Errorf("%w: ffmpeg exited before the first frame: %s", ErrDeviceUnavailable, stderr.String())
	case <-timer.C:
		d.Close()
		return nil, fmt.Errorf("%w: no frame within %s: %s", ErrDeviceUnavailable, timeout, stderr.String())
	case <-ctx.Done():
		d.Close()
		return nil, ctx.Err()
	}
}

// ffmpegArgs builds the capture command line.
func ffmpegArgs(inputFormat, device string, c Constraints) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-f", inputFormat}
	if inputFormat == "avfoundation" {
		args = append(args, "-framerate", "30")
	}
	if c.Width > 0 && c.Height > 0 {
		args = append(args, "-video_size", strconv.Itoa(c.Width)+"x"+strconv.Itoa(c.Height))
	}
	return append(args,
		"-i", device,
		"-an",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "2",
		"-",
	)
}

type ffmpegDevice struct {
	cmd  *exec.Cmd
	info DeviceInfo

	mu     sync.Mutex
	latest []byte
	closed bool

	firstOnce sync.Once
	first     chan struct{}
	exited    chan struct{}
	closeOnce sync.Once
}

func (d *ffmpegDevice) readLoop(r io.Reader) {
	defer close(d.exited)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1<<20), maxFrameBytes)
	scanner.Split(splitJPEG)
	for scanner.Scan() {
		frame := bytes.Clone(scanner.Bytes())
		d.mu.Lock()
		d.latest = frame
		d.mu.Unlock()
		d.firstOnce.Do(func() { close(d.first) })
	}
	if err := scanner.Err(); err != nil {
		log.Warn().Err(err).Str("device", d.info.Name).Msg("Camera stream ended with error")
	}
}

func (d *ffmpegDevice) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	closed, data := d.closed, d.latest
	d.mu.Unlock()
	if closed {
		return nil, ErrDeviceClosed
	}
	select {
	case <-d.exited:
		return nil, fmt.Errorf("%w: capture process exited", ErrDeviceUnavailable)
	default:
	}
	if data == nil {
		return nil, errors.New("no frame received yet")
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode camera frame: %w", err)
	}
	return img, nil
}

func (d *ffmpegDevice) Info() DeviceInfo {
	return d.info
}

// Close kills ffmpeg and reaps it. Safe to call repeatedly.
func (d *ffmpegDevice) Close() error {
	var err error
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.latest = nil
		d.mu.Unlock()

		if d.cmd.Process != nil {
			if killErr := d.cmd.Process.Kill(); killErr != nil && !errors.Is(killErr, os.ErrProcessDone) {
				err = fmt.Errorf("failed to stop ffmpeg: %w", killErr)
			}
		}
		// Wait must not run before the stdout reader is done.
		select {
		case <-d.exited:
		case <-time.After(closeDrainTimeout):
			log.Warn().Str("device", d.info.Name).Msg("Camera stream did not end after kill")
		}
		_ = d.cmd.Wait()
		log.Debug().Str("device", d.info.Name).Msg("Camera released")
	})
	return err
}

// splitJPEG is a bufio.SplitFunc yielding complete SOI..EOI JPEG images.
// MJPEG entropy data byte-stuffs 0xFF, so the first EOI after an SOI ends
// the frame.
func splitJPEG(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := bytes.Index(data, jpegSOI)
	if start < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		// Keep a trailing 0xFF in case it begins an SOI.
		if len(data) > 1 {
			return len(data) - 1, nil, nil
		}
		return 0, nil, nil
	}

	end := bytes.Index(data[start+len(jpegSOI):], jpegEOI)
	if end < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		return start, nil, nil
	}
	end += start + len(jpegSOI) + len(jpegEOI)
	return end, data[start:end], nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}
