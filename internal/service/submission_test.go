package service

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"regexp"
	"testing"

	"github.com/GimhanaMahela/BusWatch/internal/models"
	"github.com/GimhanaMahela/BusWatch/internal/socket"
	"github.com/GimhanaMahela/BusWatch/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockReportStore struct {
	mock.Mock
}

func (m *mockReportStore) Create(ctx context.Context, report *models.Report) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *mockReportStore) FindAll(ctx context.Context) ([]models.Report, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Report), args.Error(1)
}

func (m *mockReportStore) FindByID(ctx context.Context, id string) (*models.Report, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *mockReportStore) FindByReceiptID(ctx context.Context, receiptID string) (*models.Report, error) {
	args := m.Called(ctx, receiptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *mockReportStore) UpdateStatus(ctx context.Context, id, status string) (*models.Report, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *mockReportStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type stubIngestor struct {
	images []string
	videos []string
	err    error
}

func (s *stubIngestor) Ingest(context.Context, []*multipart.FileHeader) ([]string, []string, error) {
	return s.images, s.videos, s.err
}

type stubRenderer struct {
	pdf []byte
	err error
}

func (s *stubRenderer) Render(context.Context, models.Report) ([]byte, error) {
	return s.pdf, s.err
}

type stubMailer struct {
	sentTo        string
	sentReceiptID string
	sentPDF       []byte
	err           error
	calls         int
}

func (s *stubMailer) SendReceipt(to, receiptID string, pdf []byte) error {
	s.calls++
	s.sentTo = to
	s.sentReceiptID = receiptID
	s.sentPDF = pdf
	return s.err
}

type stubStorage struct {
	uploads   map[string][]byte
	deleted   []string
	uploadErr error
	deleteErr error
}

func (s *stubStorage) UploadFile(_ context.Context, file io.Reader, objectKey, _ string) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	data, _ := io.ReadAll(file)
	if s.uploads == nil {
		s.uploads = map[string][]byte{}
	}
	s.uploads[objectKey] = data
	return "https://cdn.test/" + objectKey, nil
}

func (s *stubStorage) DeleteFile(_ context.Context, objectKey string) error {
	s.deleted = append(s.deleted, objectKey)
	return s.deleteErr
}

func (s *stubStorage) KeyFromURL(url string) string {
	const prefix = "https://cdn.test/"
	if len(url) > len(prefix) && url[:len(prefix)] == prefix {
		return url[len(prefix):]
	}
	return ""
}

type recordingHub struct {
	events []socket.Event
}

func (h *recordingHub) Broadcast(event socket.Event) {
	h.events = append(h.events, event)
}

func newService(st store.ReportStore) *SubmissionService {
	return &SubmissionService{
		Store:          st,
		Ingestor:       &stubIngestor{images: []string{}, videos: []string{}},
		Renderer:       &stubRenderer{pdf: []byte("%PDF-fake")},
		DeliveryPolicy: DeliveryBoth,
	}
}

func plainInput() SubmitInput {
	return SubmitInput{
		BusNumber:   "NB-1234",
		RouteNumber: "138",
		Location:    "Town Hall",
		Description: "Overcrowded",
	}
}

func TestSubmit_Success(t *testing.T) {
	st := new(mockReportStore)
	st.On("Create", mock.Anything, mock.AnythingOfType("*models.Report")).Return(nil).Once()

	hub := &recordingHub{}
	svc := newService(st)
	svc.Hub = hub

	result, err := svc.Submit(context.Background(), plainInput())
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^BW-[0-9A-F]{12}$`), result.Report.ReceiptID)
	assert.Equal(t, models.StatusPending, result.Report.Status)
	assert.Empty(t, result.Report.Images)
	assert.Empty(t, result.Report.Videos)
	assert.True(t, result.ReceiptAvailable)

	require.Len(t, hub.events, 1)
	assert.Equal(t, "report.created", hub.events[0].Type)
	st.AssertExpectations(t)
}

func TestSubmit_DuplicateReceiptIDRetried(t *testing.T) {
	st := new(mockReportStore)
	st.On("Create", mock.Anything, mock.Anything).Return(store.ErrDuplicateReceiptID).Once()
	st.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	svc := newService(st)

	ids := []string{"BW-AAAAAAAAAAAA", "BW-BBBBBBBBBBBB"}
	svc.NewReceiptID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	result, err := svc.Submit(context.Background(), plainInput())
	require.NoError(t, err)
	assert.Equal(t, "BW-BBBBBBBBBBBB", result.Report.ReceiptID)
	st.AssertExpectations(t)
}

func TestSubmit_ReceiptIDExhausted(t *testing.T) {
	st := new(mockReportStore)
	st.On("Create", mock.Anything, mock.Anything).Return(store.ErrDuplicateReceiptID).Times(3)

	svc := newService(st)

	_, err := svc.Submit(context.Background(), plainInput())
	assert.ErrorIs(t, err, ErrReceiptIDExhausted)
	st.AssertExpectations(t)
}

func TestSubmit_PersistenceFailureIsFatal(t *testing.T) {
	st := new(mockReportStore)
	st.On("Create", mock.Anything, mock.Anything).Return(errors.New("mongo down")).Once()

	svc := newService(st)

	_, err := svc.Submit(context.Background(), plainInput())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrReceiptIDExhausted)
}

func TestSubmit_RendererFailureDegrades(t *testing.T) {
	st := new(mockReportStore)
	st.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	mailer := &stubMailer{}
	svc := newService(st)
	svc.Renderer = &stubRenderer{err: errors.New("pdf writer exploded")}
	svc.Mailer = mailer

	input := plainInput()
	input.PassengerEmail = "rider@example.com"

	result, err := svc.Submit(context.Background(), input)

	// The report is persisted, so the submission still succeeds.
	require.NoError(t, err)
	assert.False(t, result.ReceiptAvailable)
	assert.Empty(t, result.ReceiptURL)
	assert.NotEmpty(t, result.Report.ReceiptID)
	// No document, nothing to deliver.
	assert.Equal(t, 0, mailer.calls)
}

func TestSubmit_EmailFailureNonFatal(t *testing.T) {
	st := new(mockReportStore)
	st.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	mailer := &stubMailer{err: errors.New("smtp refused")}
	svc := newService(st)
	svc.Mailer = mailer
	svc.DeliveryPolicy = DeliveryEmail

	input := plainInput()
	input.PassengerEmail = "rider@example.com"

	result, err := svc.Submit(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, result.ReceiptAvailable)
	assert.Equal(t, 1, mailer.calls)
	assert.Equal(t, "rider@example.com", mailer.sentTo)
	assert.Equal(t, result.Report.ReceiptID, mailer.sentReceiptID)
}

func TestSubmit_LinkDeliveryUploadsReceipt(t *testing.T) {
	st := new(mockReportStore)
	st.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	storage := &stubStorage{}
	svc := newService(st)
	svc.Storage = storage
	svc.DeliveryPolicy = DeliveryLink

	result, err := svc.Submit(context.Background(), plainInput())
	require.NoError(t, err)

	expectedKey := "receipts/" + result.Report.ReceiptID + ".pdf"
	assert.Equal(t, "https://cdn.test/"+expectedKey, result.ReceiptURL)
	assert.Equal(t, []byte("%PDF-fake"), storage.uploads[expectedKey])
}

func TestSubmit_ReceiptUploadFailureNonFatal(t *testing.T) {
	st := new(mockReportStore)
	st.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	svc := newService(st)
	svc.Storage = &stubStorage{uploadErr: errors.New("s3 unavailable")}
	svc.DeliveryPolicy = DeliveryLink

	result, err := svc.Submit(context.Background(), plainInput())
	require.NoError(t, err)
	assert.True(t, result.ReceiptAvailable)
	assert.Empty(t, result.ReceiptURL)
}

func TestSubmit_MediaCountViolationRejected(t *testing.T) {
	st := new(mockReportStore)
	svc := newService(st)
	svc.Ingestor = &stubIngestor{err: errors.New("too many image files")}

	_, err := svc.Submit(context.Background(), plainInput())
	assert.Error(t, err)
	// Nothing was persisted.
	st.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUpdateStatus_Broadcasts(t *testing.T) {
	st := new(mockReportStore)
	updated := &models.Report{Status: models.StatusReviewed}
	st.On("UpdateStatus", mock.Anything, "abc", models.StatusReviewed).Return(updated, nil).Once()

	hub := &recordingHub{}
	svc := newService(st)
	svc.Hub = hub

	report, err := svc.UpdateStatus(context.Background(), "abc", models.StatusReviewed)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReviewed, report.Status)
	require.Len(t, hub.events, 1)
	assert.Equal(t, "report.status", hub.events[0].Type)
}

func TestUpdateStatus_InvalidStatusPropagates(t *testing.T) {
	st := new(mockReportStore)
	st.On("UpdateStatus", mock.Anything, "abc", "archived").Return(nil, store.ErrInvalidStatus).Once()

	hub := &recordingHub{}
	svc := newService(st)
	svc.Hub = hub

	_, err := svc.UpdateStatus(context.Background(), "abc", "archived")
	assert.ErrorIs(t, err, store.ErrInvalidStatus)
	assert.Empty(t, hub.events)
}

func TestDeleteReport_CleansUpEvidence(t *testing.T) {
	st := new(mockReportStore)
	report := &models.Report{
		Images: []string{"https://cdn.test/evidence/a.png", "https://elsewhere.example.com/b.png"},
		Videos: []string{"https://cdn.test/evidence/c.mp4"},
	}
	st.On("FindByID", mock.Anything, "abc").Return(report, nil).Once()
	st.On("Delete", mock.Anything, "abc").Return(nil).Once()

	storage := &stubStorage{}
	svc := newService(st)
	svc.Storage = storage

	require.NoError(t, svc.DeleteReport(context.Background(), "abc"))

	// The foreign URL cannot be mapped to a key and is skipped.
	assert.Equal(t, []string{"evidence/a.png", "evidence/c.mp4"}, storage.deleted)
	st.AssertExpectations(t)
}

func TestDeleteReport_StorageFailureDoesNotBlockDeletion(t *testing.T) {
	st := new(mockReportStore)
	report := &models.Report{Images: []string{"https://cdn.test/evidence/a.png"}}
	st.On("FindByID", mock.Anything, "abc").Return(report, nil).Once()
	st.On("Delete", mock.Anything, "abc").Return(nil).Once()

	svc := newService(st)
	svc.Storage = &stubStorage{deleteErr: errors.New("s3 unavailable")}

	require.NoError(t, svc.DeleteReport(context.Background(), "abc"))
	st.AssertExpectations(t)
}

func TestDeleteReport_NotFound(t *testing.T) {
	st := new(mockReportStore)
	st.On("FindByID", mock.Anything, "missing").Return(nil, store.ErrNotFound).Once()

	svc := newService(st)

	err := svc.DeleteReport(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	st.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
