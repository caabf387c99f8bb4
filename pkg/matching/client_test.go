package matching

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReshapeScoreAndDefaults(t *testing.T) {
	m := reshape(externalMatch{
		ID:          "m1",
		ApplicantID: 7,
		ProjectID:   3,
		Score:       0.856,
	})

	assert.Equal(t, 86, m.Score)
	assert.Equal(t, "pending", m.Status)
	assert.NotNil(t, m.Reasons)
	assert.Empty(t, m.Reasons)
	assert.Equal(t, uint(7), m.Applicant.ID)
	assert.Equal(t, uint(3), m.Project.ID)
}

func TestReshapeClampsScore(t *testing.T) {
	assert.Equal(t, 100, reshape(externalMatch{Score: 1.5}).Score)
	assert.Equal(t, 0, reshape(externalMatch{Score: -0.2}).Score)
}

func TestReshapeKeepsEmbeddedObjects(t *testing.T) {
	m := reshape(externalMatch{
		ID:          "m2",
		ApplicantID: 9,
		ProjectID:   4,
		Score:       0.5,
		Reasons:     []string{"收入符合", "区域匹配"},
		Status:      "reviewed",
		Applicant:   &MatchApplicant{ID: 999, FirstName: "伟", LastName: "陈", Income: 52000},
		Project:     &MatchProject{ID: 888, Name: "河畔家园"},
	})

	assert.Equal(t, 50, m.Score)
	assert.Equal(t, "reviewed", m.Status)
	assert.Equal(t, []string{"收入符合", "区域匹配"}, m.Reasons)
	// 内嵌对象保留，但ID以顶层外键为准
	assert.Equal(t, uint(9), m.Applicant.ID)
	assert.Equal(t, "陈", m.Applicant.LastName)
	assert.Equal(t, uint(4), m.Project.ID)
	assert.Equal(t, "河畔家园", m.Project.Name)
}

func TestProjectMatchesPassesBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/api/v1/projects/5/matches", r.URL.Path)
		json.NewEncoder(w).Encode([]externalMatch{
			{ID: "m1", ApplicantID: 1, ProjectID: 5, Score: 0.9},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	matches, err := client.ProjectMatches("caller-token", 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	assert.Equal(t, "Bearer caller-token", gotAuth)
	assert.Equal(t, 90, matches[0].Score)
}

func TestFetchMatchesNon2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	_, err := client.ProjectMatches("token", 1)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestAllMatchesSkipsFailingProject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/projects":
			json.NewEncoder(w).Encode([]RemoteProject{
				{ID: 1, Name: "甲"}, {ID: 2, Name: "乙"}, {ID: 3, Name: "丙"},
			})
		case "/api/v1/projects/2/matches":
			// 单个项目故障不应中断整体聚合
			w.WriteHeader(http.StatusInternalServerError)
		case "/api/v1/projects/1/matches":
			json.NewEncoder(w).Encode([]externalMatch{{ID: "m1", ProjectID: 1, Score: 0.8}})
		case "/api/v1/projects/3/matches":
			json.NewEncoder(w).Encode([]externalMatch{{ID: "m3", ProjectID: 3, Score: 0.6}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	matches, err := client.AllMatches("token")
	require.NoError(t, err)

	assert.Len(t, matches, 2)
	assert.Equal(t, "m1", matches[0].ID)
	assert.Equal(t, "m3", matches[1].ID)
}

func TestAllMatchesProjectListFailureAborts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	_, err := client.AllMatches("token")
	assert.Error(t, err)
}

func TestRunMatchingSendsOptionalProjectID(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/matching/run", r.URL.Path)
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)

	require.NoError(t, client.RunMatching("token", nil))
	assert.Empty(t, gotBody)

	projectID := uint(12)
	require.NoError(t, client.RunMatching("token", &projectID))
	assert.Equal(t, float64(12), gotBody["project_id"])
}

func TestUpdateMatchStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/matches/m7", r.URL.Path)

		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "approved", body["status"])
		assert.Equal(t, "符合条件", body["notes"])

		json.NewEncoder(w).Encode(externalMatch{ID: "m7", Score: 0.77, Status: "approved"})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	match, err := client.UpdateMatchStatus("token", "m7", "approved", "符合条件")
	require.NoError(t, err)

	assert.Equal(t, "m7", match.ID)
	assert.Equal(t, 77, match.Score)
	assert.Equal(t, "approved", match.Status)
}
