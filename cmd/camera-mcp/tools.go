package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fpang/camera-sim/internal/camera"
	"github.com/fpang/camera-sim/internal/filehandler"
	"github.com/fpang/camera-sim/internal/session"
	"github.com/fpang/camera-sim/internal/studio"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// defaultEnhanceWait bounds how long capture waits when asked to return the
// enhanced image.
const defaultEnhanceWait = 2 * time.Minute

type tools struct {
	surface *camera.Surface
	studio  *studio.Studio
	gallery *session.Gallery
}

func newMCPServer(surface *camera.Surface, st *studio.Studio) *mcp.Server {
	t := &tools{
		surface: surface,
		studio:  st,
		gallery: session.NewGallery(st.Store()),
	}

	server := mcp.NewServer(&mcp.Implementation{Name: "camera-sim", Version: version}, nil)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "capture",
		Description: "Take a picture with the simulated camera. The still is stored in the session gallery and enhanced in the background.",
	}, t.capture)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "gallery",
		Description: "Page through the session gallery, newest first. Actions: list, current, next, prev, select.",
	}, t.browse)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_lens",
		Description: "Select the lens: 16mm (ultra-wide), 24mm (wide) or 50mm (telephoto). Only the live view zoom changes.",
	}, t.setLens)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "status",
		Description: "Report the camera state, settings readout, battery and enhancement progress.",
	}, t.status)
	return server
}

// entry is an image as reported to MCP clients.
type entry struct {
	ID           string `json:"id"`
	Timestamp    string `json:"timestamp"`
	ISO          int    `json:"iso"`
	ShutterSpeed string `json:"shutterSpeed"`
	Aperture     string `json:"aperture"`
	Lens         string `json:"lens"`
	Enhanced     bool   `json:"enhanced"`
}

func newEntry(img session.CapturedImage) entry {
	return entry{
		ID:           img.ID,
		Timestamp:    img.Timestamp.UTC().Format(time.RFC3339),
		ISO:          img.Meta.ISO,
		ShutterSpeed: img.Meta.ShutterSpeed,
		Aperture:     img.Meta.Aperture,
		Lens:         string(img.Meta.Lens),
		Enhanced:     img.IsEnhanced(),
	}
}

// imageResult shows img as a thumbnail, enhanced when available.
func imageResult(img session.CapturedImage, text string) *mcp.CallToolResult {
	src := img.Original
	if img.Enhanced != nil {
		src = *img.Enhanced
	}
	res := &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
	thumb, err := filehandler.GenerateThumbnail(src, filehandler.DefaultThumbnailMaxDimension)
	if err != nil {
		log.Warn().Err(err).Str("id", img.ID).Msg("Failed to generate thumbnail")
		return res
	}
	res.Content = append(res.Content, &mcp.ImageContent{Data: thumb.Data, MIMEType: thumb.MIMEType})
	return res
}

type captureInput struct {
	WaitForEnhancement bool `json:"waitForEnhancement,omitempty" jsonschema:"wait for the enhanced image before returning"`
}

func (t *tools) capture(ctx context.Context, _ *mcp.CallToolRequest, in captureInput) (*mcp.CallToolResult, entry, error) {
	img, err := t.studio.Capture(ctx)
	if err != nil {
		if errors.Is(err, camera.ErrNotReady) {
			return nil, entry{}, errors.New(camera.DeviceErrorMessage)
		}
		return nil, entry{}, err
	}

	if in.WaitForEnhancement && t.studio.EnhancementAvailable() {
		waitCtx, cancel := context.WithTimeout(ctx, defaultEnhanceWait)
		defer cancel()
		if err := t.studio.Wait(waitCtx); err != nil {
			log.Warn().Err(err).Str("id", img.ID).Msg("Returning before enhancement finished")
		}
		if latest, ok := t.studio.Store().Get(img.ID); ok {
			img = latest
		}
	}
	t.gallery.Select(0)

	out := newEntry(img)
	text := fmt.Sprintf("Captured %s at %s %s ISO %d (%s).", out.ID, out.ShutterSpeed, out.Aperture, out.ISO, out.Lens)
	if !t.studio.EnhancementAvailable() {
		text += " Enhancement is disabled: no API key."
	}
	return imageResult(img, text), out, nil
}

type galleryInput struct {
	Action string `json:"action,omitempty" jsonschema:"one of list, current, next, prev, select; default current"`
	Index  int    `json:"index,omitempty" jsonschema:"position for select, 0 is the newest"`
}

type galleryOutput struct {
	Count      int     `json:"count"`
	Index      int     `json:"index"`
	Processing int     `json:"processing"`
	Selected   *entry  `json:"selected,omitempty"`
	Images     []entry `json:"images,omitempty"`
}

func (t *tools) browse(_ context.Context, _ *mcp.CallToolRequest, in galleryInput) (*mcp.CallToolResult, galleryOutput, error) {
	var (
		img session.CapturedImage
		ok  bool
	)
	switch in.Action {
	case "list":
		images := t.studio.Store().List()
		out := galleryOutput{Count: len(images), Index: t.gallery.Index(), Processing: t.studio.Processing()}
		for _, img := range images {
			out.Images = append(out.Images, newEntry(img))
		}
		return nil, out, nil
	case "", "current":
		img, ok = t.gallery.Current()
	case "next":
		img, ok = t.gallery.Next()
	case "prev":
		img, ok = t.gallery.Prev()
	case "select":
		img, ok = t.gallery.Select(in.Index)
	default:
		return nil, galleryOutput{}, fmt.Errorf("unknown action %q", in.Action)
	}

	out := galleryOutput{
		Count:      t.studio.Store().Len(),
		Index:      t.gallery.Index(),
		Processing: t.studio.Processing(),
	}
	if !ok {
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: "The gallery is empty."}}}, out, nil
	}
	e := newEntry(img)
	out.Selected = &e
	text := fmt.Sprintf("Image %d of %d: %s %s ISO %d (%s)", out.Index+1, out.Count, e.ShutterSpeed, e.Aperture, e.ISO, e.Lens)
	if !e.Enhanced {
		text += ", not enhanced"
	}
	return imageResult(img, text), out, nil
}

type lensInput struct {
	Lens string `json:"lens" jsonschema:"16mm, 24mm or 50mm"`
}

func (t *tools) setLens(_ context.Context, _ *mcp.CallToolRequest, in lensInput) (*mcp.CallToolResult, camera.Status, error) {
	lens, err := camera.ParseLens(in.Lens)
	if err != nil {
		return nil, camera.Status{}, err
	}
	if err := t.surface.SetLens(lens); err != nil {
		return nil, camera.Status{}, err
	}
	return nil, t.surface.Status(), nil
}

type statusOutput struct {
	Camera      camera.Status `json:"camera"`
	Count       int           `json:"count"`
	Processing  int           `json:"processing"`
	Enhancement bool          `json:"enhancement"`
}

func (t *tools) status(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, statusOutput, error) {
	return nil, statusOutput{
		Camera:      t.surface.Status(),
		Count:       t.studio.Store().Len(),
		Processing:  t.studio.Processing(),
		Enhancement: t.studio.EnhancementAvailable(),
	}, nil
}
