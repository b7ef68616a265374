package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/questline-learn/questline-api/internal/dto"
)

func TestXPSummaryEndpoint(t *testing.T) {
	ta := newTestApp(t)
	path := "/api/v1/students/" + ta.student.ID + "/xp"

	resp, envelope := ta.request(t, http.MethodGet, path, &ta.student, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary dto.XPSummaryResponse
	decodeData(t, envelope, &summary)
	require.Equal(t, ta.student.ID, summary.StudentID)
	require.Zero(t, summary.Total)

	// Teachers see scoped students, other students do not.
	resp, _ = ta.request(t, http.MethodGet, path, &ta.teacher, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = ta.request(t, http.MethodGet, path, &ta.stranger, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = ta.request(t, http.MethodGet, path, &ta.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
