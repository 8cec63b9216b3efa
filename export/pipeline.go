// Package export renders clean, overlay-free images of every garment view and
// bundles them with order metadata for download or submission.
package export

import (
	"apparel-studio/core"
	"apparel-studio/editor"
	"apparel-studio/garment"
	"apparel-studio/shade"
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultDecodeTimeout bounds the wait for a layer's image before it is left
// out of an export.
const DefaultDecodeTimeout = 10 * time.Second

var (
	ErrEncode = errors.New("export encode failed")
	ErrSubmit = errors.New("order submission failed")
)

type (
	Options struct {
		DecodeTimeout time.Duration
		UnitPrice     int
		Encoder       Encoder
		Submitter     Submitter
	}

	// Bundle is the result of exporting a session.
	Bundle struct {
		Views       []core.View
		Images      map[core.View][]byte
		ContentType string
		Metadata    core.OrderMetadata
	}

	// Download is a single encoded view offered as a file.
	Download struct {
		Filename    string
		ContentType string
		Data        []byte
	}

	Pipeline struct {
		renderer      *garment.Renderer
		encoder       Encoder
		submitter     Submitter
		decodeTimeout time.Duration
		unitPrice     int
	}
)

func New(renderer *garment.Renderer, opts Options) *Pipeline {
	if opts.DecodeTimeout <= 0 {
		opts.DecodeTimeout = DefaultDecodeTimeout
	}
	if opts.UnitPrice <= 0 {
		opts.UnitPrice = DefaultUnitPrice
	}
	if opts.Encoder == nil {
		opts.Encoder = PNGEncoder{}
	}
	return &Pipeline{
		renderer:      renderer,
		encoder:       opts.Encoder,
		submitter:     opts.Submitter,
		decodeTimeout: opts.DecodeTimeout,
		unitPrice:     opts.UnitPrice,
	}
}

// UnitPrice is the price of one garment.
func (p *Pipeline) UnitPrice() int {
	return p.unitPrice
}

// ExportViews lists the views an export covers: front and back always, the
// sleeves only when they carry a design.
func ExportViews(snap editor.Snapshot) []core.View {
	views := []core.View{core.ViewFront, core.ViewBack}
	for _, v := range []core.View{core.ViewLeftArm, core.ViewRightArm} {
		if snap.Populated(v) {
			views = append(views, v)
		}
	}
	return views
}

// ExportAll renders every relevant view one after another from a snapshot of
// s. The live session is never modified, so grid, selection and active view
// are the same afterwards whether the export succeeds or fails.
func (p *Pipeline) ExportAll(ctx context.Context, s *editor.Session, order Order) (*Bundle, error) {
	snap := s.Snapshot()
	log := logrus.WithFields(logrus.Fields{
		"session_id": s.ID(),
		"revision":   snap.Revision,
	})

	if !order.validQuantity() {
		return nil, &ValidationError{Fields: []string{"quantity"}}
	}

	b := &Bundle{
		Views:       ExportViews(snap),
		Images:      make(map[core.View][]byte),
		ContentType: p.encoder.ContentType(),
	}
	omitted := make(map[string]bool)
	for _, v := range b.Views {
		data, skipped, err := p.capture(ctx, snap, v)
		if err != nil {
			log.WithError(err).WithField("view", v).Error("Export failed")
			return nil, err
		}
		b.Images[v] = data
		for _, id := range skipped {
			omitted[id] = true
		}
	}
	b.Metadata = p.metadata(snap, b.Views, order, omitted)

	log.WithField("views", len(b.Views)).Info("Export completed")
	return b, nil
}

// DownloadCurrentView exports only the active view.
func (p *Pipeline) DownloadCurrentView(ctx context.Context, s *editor.Session) (*Download, error) {
	snap := s.Snapshot()
	data, _, err := p.capture(ctx, snap, snap.ActiveView)
	if err != nil {
		logrus.WithError(err).WithField("session_id", s.ID()).Error("Download failed")
		return nil, err
	}
	return &Download{
		Filename:    fmt.Sprintf("custom-garment-%s-design.%s", snap.ActiveView, p.encoder.Extension()),
		ContentType: p.encoder.ContentType(),
		Data:        data,
	}, nil
}

// capture renders view v without overlays once its layers are decoded. A
// layer that does not decode within the timeout is left out and its id
// returned in omitted.
func (p *Pipeline) capture(ctx context.Context, snap editor.Snapshot, v core.View) ([]byte, []string, error) {
	clean := snap.Clean().WithView(v)
	frame := clean.Frame()

	waitCtx, cancel := context.WithTimeout(ctx, p.decodeTimeout)
	defer cancel()

	elems := clean.Elements(v)
	layers := make([]garment.Layer, 0, len(elems))
	var omitted []string
	for i, e := range elems {
		if e.Image == nil {
			omitted = append(omitted, e.ID)
			continue
		}
		img, err := e.Image.Wait(waitCtx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			logrus.WithError(err).WithFields(logrus.Fields{
				"view":     v,
				"layer_id": e.ID,
			}).Warn("Layer omitted from export")
			omitted = append(omitted, e.ID)
			continue
		}
		l := frame.Layers[i]
		l.Image = img
		layers = append(layers, l)
	}
	frame.Layers = layers

	img, err := p.renderer.Render(frame)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	var buf bytes.Buffer
	if err := p.encoder.Encode(&buf, img); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrEncode, v, err)
	}
	return buf.Bytes(), omitted, nil
}

// metadata describes the exported layers. Layers missing from the images are
// left out of the records too.
func (p *Pipeline) metadata(snap editor.Snapshot, views []core.View, order Order, omitted map[string]bool) core.OrderMetadata {
	designs := make(map[core.View][]core.DesignRecord, len(views))
	for _, v := range views {
		records := []core.DesignRecord{}
		for _, e := range snap.Elements(v) {
			if !omitted[e.ID] {
				records = append(records, e.Record())
			}
		}
		designs[v] = records
	}
	return core.OrderMetadata{
		Color:           shade.Hex(snap.BaseColor),
		Designs:         designs,
		Quantity:        order.Quantity,
		UnitPrice:       p.unitPrice,
		TotalPrice:      p.unitPrice * order.Quantity,
		ShippingAddress: order.ShippingAddress,
	}
}

// Submit validates the order, exports the session and hands the result to the
// order service. Nothing is exported when validation fails.
func (p *Pipeline) Submit(ctx context.Context, s *editor.Session, order Order, token string) (string, error) {
	if err := order.Validate(); err != nil {
		return "", err
	}
	if p.submitter == nil {
		return "", fmt.Errorf("%w: no order endpoint configured", ErrSubmit)
	}

	b, err := p.ExportAll(ctx, s, order)
	if err != nil {
		return "", err
	}

	id, err := p.submitter.Submit(ctx, b, token)
	if err != nil {
		logrus.WithError(err).WithField("session_id", s.ID()).Error("Order submission failed")
		if errors.Is(err, ErrSubmit) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrSubmit, err)
	}
	logrus.WithFields(logrus.Fields{
		"session_id": s.ID(),
		"order_id":   id,
	}).Info("Order submitted")
	return id, nil
}
