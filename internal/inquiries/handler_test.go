package inquiries

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inquiryRow(converted bool) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "name", "email", "phone", "message", "status", "converted_to_client", "inquiry_date",
	}).AddRow("inq-1", "Pat Kim", "pat@home.example", "555-0142", "need help", StatusNew, converted, time.Now().UTC())
}

func postConvert(h *Handler, id string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Post("/admin/inquiries/{inquiryID}/convert", h.Convert)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/inquiries/"+id+"/convert", nil))
	return rec
}

func TestConvertCommitsClientAndFlagTogether(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM inquiries").
		WithArgs("inq-1").
		WillReturnRows(inquiryRow(false))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO clients").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE inquiries").
		WithArgs("inq-1", StatusConverted).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	h := NewHandler(NewRepository(mock), mock, nil, nil)
	rec := postConvert(h, "inq-1")

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConvertRollsBackWhenFlagFails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM inquiries").
		WithArgs("inq-1").
		WillReturnRows(inquiryRow(false))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO clients").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE inquiries").
		WithArgs("inq-1", StatusConverted).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	h := NewHandler(NewRepository(mock), mock, nil, nil)
	rec := postConvert(h, "inq-1")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConvertRejectsAlreadyConverted(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM inquiries").
		WithArgs("inq-1").
		WillReturnRows(inquiryRow(true))

	h := NewHandler(NewRepository(mock), mock, nil, nil)
	rec := postConvert(h, "inq-1")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
