package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"github.com/GimhanaMahela/BusWatch/internal/models"
	"github.com/GimhanaMahela/BusWatch/internal/receipt"
	"github.com/GimhanaMahela/BusWatch/internal/socket"
	"github.com/GimhanaMahela/BusWatch/internal/store"

	"github.com/sirupsen/logrus"
)

// Receipt delivery policies. The rendered PDF can be emailed to the
// passenger, uploaded to object storage and linked in the response, or both.
const (
	DeliveryEmail = "email"
	DeliveryLink  = "link"
	DeliveryBoth  = "both"
)

// receiptIDAttempts bounds the regenerate-and-retry loop on a receiptId
// collision. With UUID-class entropy exhaustion is effectively unreachable,
// but the contract still needs a terminal state.
const receiptIDAttempts = 3

// ErrReceiptIDExhausted is returned when every insert attempt collided.
// Surfaced to the client as a 409.
var ErrReceiptIDExhausted = errors.New("could not allocate a unique receipt ID")

// Collaborator seams, injected so tests can substitute fakes.

type Ingestor interface {
	Ingest(ctx context.Context, files []*multipart.FileHeader) (images, videos []string, err error)
}

type Renderer interface {
	Render(ctx context.Context, report models.Report) ([]byte, error)
}

type Mailer interface {
	SendReceipt(to, receiptID string, pdf []byte) error
}

type ObjectStorage interface {
	UploadFile(ctx context.Context, file io.Reader, objectKey, contentType string) (string, error)
	DeleteFile(ctx context.Context, objectKey string) error
	KeyFromURL(url string) string
}

type Broadcaster interface {
	Broadcast(event socket.Event)
}

// SubmissionService sequences a submission: media ingestion, persistence
// with a fresh receipt ID, receipt rendering and best-effort delivery. Only
// validation and persistence failures reach the client as errors.
type SubmissionService struct {
	Store          store.ReportStore
	Ingestor       Ingestor
	Renderer       Renderer
	Mailer         Mailer
	Storage        ObjectStorage
	Hub            Broadcaster
	DeliveryPolicy string

	// NewReceiptID defaults to receipt.NewID; tests override it to force
	// collisions.
	NewReceiptID func() string
}

type SubmitInput struct {
	BusNumber      string
	RouteNumber    string
	BusName        string
	Location       string
	Description    string
	PassengerEmail string
	Files          []*multipart.FileHeader
}

type SubmitResult struct {
	Report *models.Report
	// ReceiptURL is set when the delivery policy uploaded the PDF.
	ReceiptURL string
	// ReceiptAvailable is false when the renderer failed hard; the report
	// itself was still persisted and the receipt ID is valid.
	ReceiptAvailable bool
}

// Submit runs the full pipeline. The returned error is non-nil only for
// media count violations, persistence failure or receipt-ID exhaustion;
// everything downstream of persistence degrades instead of failing.
func (s *SubmissionService) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	images, videos, err := s.Ingestor.Ingest(ctx, in.Files)
	if err != nil {
		return nil, err
	}

	report := &models.Report{
		BusNumber:   in.BusNumber,
		RouteNumber: in.RouteNumber,
		BusName:     in.BusName,
		Location:    in.Location,
		Description: in.Description,
		Images:      images,
		Videos:      videos,
		ReportedAt:  time.Now(),
		Status:      models.StatusPending,
	}

	created := false
	for attempt := 0; attempt < receiptIDAttempts; attempt++ {
		report.ReceiptID = s.newReceiptID()
		err = s.Store.Create(ctx, report)
		if err == nil {
			created = true
			break
		}
		if !errors.Is(err, store.ErrDuplicateReceiptID) {
			return nil, err
		}
		logrus.WithField("receiptId", report.ReceiptID).Warn("receipt ID collision, regenerating")
	}
	if !created {
		return nil, ErrReceiptIDExhausted
	}

	log := logrus.WithField("receiptId", report.ReceiptID)
	result := &SubmitResult{Report: report}

	pdf, renderErr := s.Renderer.Render(ctx, *report)
	if renderErr != nil {
		// The report is already persisted; the client still gets its
		// receipt ID, just without the document artifact.
		log.WithError(renderErr).Error("receipt rendering failed")
		s.broadcast(socket.Event{Type: "report.created", Payload: report})
		return result, nil
	}
	result.ReceiptAvailable = true

	if s.deliverByLink() && s.Storage != nil {
		objectKey := fmt.Sprintf("receipts/%s.pdf", report.ReceiptID)
		url, upErr := s.Storage.UploadFile(ctx, bytes.NewReader(pdf), objectKey, "application/pdf")
		if upErr != nil {
			log.WithError(upErr).Error("receipt upload failed")
		} else {
			result.ReceiptURL = url
		}
	}

	if s.deliverByEmail() && in.PassengerEmail != "" && s.Mailer != nil {
		if mailErr := s.Mailer.SendReceipt(in.PassengerEmail, report.ReceiptID, pdf); mailErr != nil {
			log.WithError(mailErr).Error("receipt email failed")
		} else {
			log.Info("receipt email sent")
		}
	}

	s.broadcast(socket.Event{Type: "report.created", Payload: report})
	return result, nil
}

// UpdateStatus delegates to the store and notifies connected dashboards.
func (s *SubmissionService) UpdateStatus(ctx context.Context, id, status string) (*models.Report, error) {
	report, err := s.Store.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.broadcast(socket.Event{Type: "report.status", Payload: report})
	return report, nil
}

// DeleteReport removes the record after a best-effort cleanup of its
// evidence objects. Object-store failures never block the record deletion.
func (s *SubmissionService) DeleteReport(ctx context.Context, id string) error {
	report, err := s.Store.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if s.Storage != nil {
		for _, url := range append(append([]string{}, report.Images...), report.Videos...) {
			objectKey := s.Storage.KeyFromURL(url)
			if objectKey == "" {
				logrus.WithField("url", url).Warn("cannot derive object key, skipping evidence cleanup")
				continue
			}
			if delErr := s.Storage.DeleteFile(ctx, objectKey); delErr != nil {
				logrus.WithError(delErr).WithField("objectKey", objectKey).Warn("evidence cleanup failed")
			}
		}
	}

	if err := s.Store.Delete(ctx, id); err != nil {
		return err
	}
	s.broadcast(socket.Event{Type: "report.deleted", Payload: map[string]string{"id": id}})
	return nil
}

func (s *SubmissionService) newReceiptID() string {
	if s.NewReceiptID != nil {
		return s.NewReceiptID()
	}
	return receipt.NewID()
}

func (s *SubmissionService) deliverByLink() bool {
	return s.DeliveryPolicy == DeliveryLink || s.DeliveryPolicy == DeliveryBoth
}

func (s *SubmissionService) deliverByEmail() bool {
	return s.DeliveryPolicy == DeliveryEmail || s.DeliveryPolicy == DeliveryBoth
}

func (s *SubmissionService) broadcast(event socket.Event) {
	if s.Hub != nil {
		s.Hub.Broadcast(event)
	}
}
