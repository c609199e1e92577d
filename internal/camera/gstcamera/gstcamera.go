// Package gstcamera implements camera.Source over an RTSP source using
// GStreamer, via the go-gst bindings. It is grounded on the reference
// RTSP stream provider's pipeline shape (rtspsrc -> depay -> decode ->
// convert -> scale -> capsfilter(RGB) -> appsink), simplified from a
// push-to-channel streaming API to the pull-one-frame-at-a-time shape
// camera.Source needs.
package gstcamera

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// Camera is a camera.Source backed by a GStreamer RTSP pipeline.
type Camera struct {
	rtspURL       string
	width, height int

	mu       sync.Mutex
	pipeline *gst.Pipeline
	appsink  *app.Sink
	frames   chan []byte
}

// New constructs a Camera. The pipeline is not started until Open.
func New(rtspURL string, width, height int) *Camera {
	return &Camera{
		rtspURL: rtspURL,
		width:   width,
		height:  height,
		frames:  make(chan []byte, 2),
	}
}

func (c *Camera) Width() int  { return c.width }
func (c *Camera) Height() int { return c.height }

// Open builds and starts the GStreamer pipeline.
func (c *Camera) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return fmt.Errorf("gstcamera: creating pipeline: %w", err)
	}

	rtspsrc, err := gst.NewElement("rtspsrc")
	if err != nil {
		return fmt.Errorf("gstcamera: creating rtspsrc: %w", err)
	}
	rtspsrc.SetProperty("location", c.rtspURL)
	rtspsrc.SetProperty("protocols", 4) // TCP only
	rtspsrc.SetProperty("latency", 200)

	rtph264depay, err := gst.NewElement("rtph264depay")
	if err != nil {
		return fmt.Errorf("gstcamera: creating rtph264depay: %w", err)
	}
	avdecH264, err := gst.NewElement("avdec_h264")
	if err != nil {
		return fmt.Errorf("gstcamera: creating avdec_h264: %w", err)
	}
	videoconvert, err := gst.NewElement("videoconvert")
	if err != nil {
		return fmt.Errorf("gstcamera: creating videoconvert: %w", err)
	}
	videoscale, err := gst.NewElement("videoscale")
	if err != nil {
		return fmt.Errorf("gstcamera: creating videoscale: %w", err)
	}
	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return fmt.Errorf("gstcamera: creating capsfilter: %w", err)
	}
	caps := gst.NewCapsFromString(fmt.Sprintf(
		"video/x-raw,format=RGB,width=%d,height=%d", c.width, c.height,
	))
	capsfilter.SetProperty("caps", caps)

	appsink, err := app.NewAppSink()
	if err != nil {
		return fmt.Errorf("gstcamera: creating appsink: %w", err)
	}
	appsink.SetProperty("sync", false)
	appsink.SetProperty("max-buffers", 1)
	appsink.SetProperty("drop", true)
	appsink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: c.onNewSample,
	})
	c.appsink = appsink

	if err := pipeline.AddMany(rtspsrc, rtph264depay, avdecH264, videoconvert, videoscale, capsfilter, appsink.Element); err != nil {
		return fmt.Errorf("gstcamera: adding elements: %w", err)
	}
	if err := gst.ElementLinkMany(rtph264depay, avdecH264, videoconvert, videoscale, capsfilter, appsink.Element); err != nil {
		return fmt.Errorf("gstcamera: linking static elements: %w", err)
	}

	rtspsrc.Connect("pad-added", func(self *gst.Element, srcPad *gst.Pad) {
		sinkPad := rtph264depay.GetStaticPad("sink")
		if sinkPad != nil && !sinkPad.IsLinked() {
			srcPad.Link(sinkPad)
		}
	})

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("gstcamera: starting pipeline: %w", err)
	}
	c.pipeline = pipeline
	return nil
}

// onNewSample is the appsink callback: pull the sample, copy its bytes,
// and hand them to the next Read call (dropping on a full channel,
// since appsink itself is already configured max-buffers=1/drop=true).
func (c *Camera) onNewSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		return gst.FlowEOS
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		return gst.FlowError
	}
	mapInfo := buffer.Map(gst.MapRead)
	defer buffer.Unmap()
	data := mapInfo.Bytes()
	if len(data) == 0 {
		return gst.FlowOK
	}

	frame := make([]byte, len(data))
	copy(frame, data)

	select {
	case c.frames <- frame:
	default:
	}
	return gst.FlowOK
}

// Read blocks for the next decoded frame, up to a 2-second timeout
// (spec.md §4.4's "persistent failure is logged" path: the capture
// stage retries on this error rather than treating it as fatal).
func (c *Camera) Read(ctx context.Context, dst []byte) error {
	need := c.width * c.height * 3
	if len(dst) != need {
		return fmt.Errorf("gstcamera: dst has %d bytes, want %d", len(dst), need)
	}
	select {
	case data := <-c.frames:
		if len(data) != need {
			return fmt.Errorf("gstcamera: received %d bytes, want %d", len(data), need)
		}
		copy(dst, data)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(2 * time.Second):
		return fmt.Errorf("gstcamera: no frame within 2s")
	}
}

// Close tears down the pipeline.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pipeline == nil {
		return nil
	}
	err := c.pipeline.SetState(gst.StateNull)
	c.pipeline = nil
	if err != nil {
		return fmt.Errorf("gstcamera: stopping pipeline: %w", err)
	}
	return nil
}
