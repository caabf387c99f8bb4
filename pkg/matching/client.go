package matching

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Client 外部匹配评分服务客户端
// 所有请求透传调用方的Bearer令牌，由评分服务自行鉴权
type Client struct {
	baseURL string
	client  *http.Client
	log     *logrus.Logger
}

// NewClient 创建匹配服务客户端
func NewClient(baseURL string, log *logrus.Logger) *Client {
	if log == nil {
		log = logrus.New()
	}
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// MatchApplicant 匹配结果中内嵌的申请人信息
type MatchApplicant struct {
	ID            uint    `json:"id"`
	FirstName     string  `json:"first_name"`
	LastName      string  `json:"last_name"`
	Email         string  `json:"email"`
	HouseholdSize int     `json:"household_size"`
	Income        float64 `json:"income"`
	AMIPercent    int     `json:"ami_percent"`
}

// MatchProject 匹配结果中内嵌的项目信息
type MatchProject struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	City            string `json:"city"`
	TotalUnits      int    `json:"total_units"`
	AffordableUnits int    `json:"affordable_units"`
}

// Match 对前端暴露的匹配结果（百分制评分，嵌套申请人/项目）
type Match struct {
	ID        string         `json:"id"`
	Score     int            `json:"score"`
	Reasons   []string       `json:"reasons"`
	Status    string         `json:"status"`
	Notes     string         `json:"notes,omitempty"`
	Applicant MatchApplicant `json:"applicant"`
	Project   MatchProject   `json:"project"`
}

// RemoteProject 评分服务侧的项目列表行
type RemoteProject struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// 评分服务的原始返回（蛇形命名，0-1评分）
type externalMatch struct {
	ID          string          `json:"id"`
	ApplicantID uint            `json:"applicant_id"`
	ProjectID   uint            `json:"project_id"`
	Score       float64         `json:"score"`
	Reasons     []string        `json:"reasons"`
	Status      string          `json:"status"`
	Notes       string          `json:"notes"`
	Applicant   *MatchApplicant `json:"applicant"`
	Project     *MatchProject   `json:"project"`
}

// reshape 将外部结构转换为前端结构，缺失字段填默认值
func reshape(ext externalMatch) Match {
	m := Match{
		ID:      ext.ID,
		Score:   int(math.Round(ext.Score * 100)),
		Reasons: ext.Reasons,
		Status:  ext.Status,
		Notes:   ext.Notes,
	}

	if m.Score < 0 {
		m.Score = 0
	}
	if m.Score > 100 {
		m.Score = 100
	}
	if m.Reasons == nil {
		m.Reasons = []string{}
	}
	if m.Status == "" {
		m.Status = "pending"
	}

	if ext.Applicant != nil {
		m.Applicant = *ext.Applicant
	}
	m.Applicant.ID = ext.ApplicantID

	if ext.Project != nil {
		m.Project = *ext.Project
	}
	m.Project.ID = ext.ProjectID

	return m
}

// doRequest 发送请求并读取响应体，非2xx返回错误
func (c *Client) doRequest(method, path, token string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("序列化请求失败: %v", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "AHMP/1.0")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求匹配服务失败: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("匹配服务返回 %d: %s", resp.StatusCode, string(data))
	}

	return data, nil
}

// fetchMatches 请求并转换一组匹配结果
func (c *Client) fetchMatches(path, token string) ([]Match, error) {
	data, err := c.doRequest(http.MethodGet, path, token, nil)
	if err != nil {
		return nil, err
	}

	var external []externalMatch
	if err := json.Unmarshal(data, &external); err != nil {
		return nil, fmt.Errorf("解析匹配结果失败: %v", err)
	}

	matches := make([]Match, 0, len(external))
	for _, ext := range external {
		matches = append(matches, reshape(ext))
	}
	return matches, nil
}

// ProjectMatches 获取指定项目的匹配结果
func (c *Client) ProjectMatches(token string, projectID uint) ([]Match, error) {
	return c.fetchMatches(fmt.Sprintf("/api/v1/projects/%d/matches", projectID), token)
}

// ApplicantMatches 获取指定申请人的匹配结果
func (c *Client) ApplicantMatches(token string, applicantID uint) ([]Match, error) {
	return c.fetchMatches(fmt.Sprintf("/api/v1/applicants/%d/matches", applicantID), token)
}

// Projects 获取评分服务侧的项目列表
func (c *Client) Projects(token string) ([]RemoteProject, error) {
	data, err := c.doRequest(http.MethodGet, "/api/v1/projects", token, nil)
	if err != nil {
		return nil, err
	}

	var projects []RemoteProject
	if err := json.Unmarshal(data, &projects); err != nil {
		return nil, fmt.Errorf("解析项目列表失败: %v", err)
	}
	return projects, nil
}

// AllMatches 聚合全部项目的匹配结果
// 评分服务没有批量接口，逐项目串行拉取；单个项目失败只记录日志并跳过，
// 不中断整体聚合
func (c *Client) AllMatches(token string) ([]Match, error) {
	projects, err := c.Projects(token)
	if err != nil {
		return nil, err
	}

	all := make([]Match, 0)
	for _, project := range projects {
		matches, err := c.ProjectMatches(token, project.ID)
		if err != nil {
			c.log.WithError(err).Warnf("获取项目 %d 的匹配结果失败，跳过", project.ID)
			continue
		}
		all = append(all, matches...)
	}
	return all, nil
}

// RunMatching 触发评分服务重新计算匹配，projectID为nil时全量计算
func (c *Client) RunMatching(token string, projectID *uint) error {
	body := map[string]interface{}{}
	if projectID != nil {
		body["project_id"] = *projectID
	}
	_, err := c.doRequest(http.MethodPost, "/api/v1/matching/run", token, body)
	return err
}

// UpdateMatchStatus 更新匹配结果的审核状态
func (c *Client) UpdateMatchStatus(token, matchID, status, notes string) (*Match, error) {
	body := map[string]interface{}{"status": status}
	if notes != "" {
		body["notes"] = notes
	}

	data, err := c.doRequest(http.MethodPut, "/api/v1/matches/"+matchID, token, body)
	if err != nil {
		return nil, err
	}

	var ext externalMatch
	if err := json.Unmarshal(data, &ext); err != nil {
		return nil, fmt.Errorf("解析匹配结果失败: %v", err)
	}
	m := reshape(ext)
	return &m, nil
}
