package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"imin-server/config"
	"imin-server/pkg/jwt"
)

// 并发 openOrCreateThread 压测：每对用户由双方同时发起，统计每对得到的会话数

type APITestStats struct {
	TotalRequests      int
	SuccessfulRequests int
	FailedRequests     int
	latencies          []time.Duration
	mu                 sync.Mutex
}

func (s *APITestStats) Add(success bool, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TotalRequests++
	if !success {
		s.FailedRequests++
		return
	}
	s.SuccessfulRequests++
	s.latencies = append(s.latencies, latency)
}

// Percentile 成功请求延迟的分位数，p 取 0~100
func (s *APITestStats) Percentile(p float64) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.latencies) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), s.latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted)-1) * p / 100)
	return sorted[idx]
}

type client struct {
	base  string
	http  *http.Client
	token map[string]string
}

func (c *client) do(method, path, userID string, body interface{}) (int, json.RawMessage, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return 0, nil, err
		}
	}
	req, err := http.NewRequest(method, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token[userID])

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, env.Data, nil
}

func (c *client) openThread(from, to string, stats *APITestStats) (string, error) {
	start := time.Now()
	code, data, err := c.do(http.MethodPost, "/api/v1/threads", from, map[string]string{"user_id": to})
	stats.Add(err == nil && code == http.StatusOK, time.Since(start))
	if err != nil {
		return "", err
	}
	if code != http.StatusOK {
		return "", fmt.Errorf("status %d", code)
	}
	var thread struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &thread); err != nil {
		return "", err
	}
	return thread.ID, nil
}

func main() {
	base := flag.String("base", "http://localhost:8080", "server base url")
	pairs := flag.Int("pairs", 20, "number of user pairs")
	perPair := flag.Int("per-pair", 10, "concurrent openOrCreateThread calls per pair")
	flag.Parse()

	cfg := config.LoadConfig()
	signer := jwt.NewJWTService(cfg.JWT)
	runID := time.Now().Format("150405")

	c := &client{base: *base, http: &http.Client{Timeout: 8 * time.Second}, token: map[string]string{}}
	users := make([][2]string, 0, *pairs)
	for i := 0; i < *pairs; i++ {
		pair := [2]string{fmt.Sprintf("bench-%s-%d-a", runID, i), fmt.Sprintf("bench-%s-%d-b", runID, i)}
		for _, id := range pair {
			token, err := signer.GenerateToken(id, id, "")
			if err != nil {
				log.Fatalf("sign token failed: %v", err)
			}
			c.token[id] = token
			if code, _, err := c.do(http.MethodGet, "/api/v1/me", id, nil); err != nil || code != http.StatusOK {
				log.Fatalf("provision %s failed: status=%d err=%v", id, code, err)
			}
		}
		users = append(users, pair)
	}

	fmt.Println("=== openOrCreateThread 并发去重测试 ===")
	fmt.Printf("目标: %s 用户对: %d 每对并发: %d\n", *base, *pairs, *perPair)

	stats := &APITestStats{}
	threadIDs := make([]map[string]struct{}, len(users))
	var mu sync.Mutex
	var wg sync.WaitGroup
	start := time.Now()

	for i, pair := range users {
		threadIDs[i] = map[string]struct{}{}
		for j := 0; j < *perPair; j++ {
			from, to := pair[0], pair[1]
			if j%2 == 1 {
				from, to = to, from
			}
			wg.Add(1)
			go func(i int, from, to string) {
				defer wg.Done()
				id, err := c.openThread(from, to, stats)
				if err != nil {
					log.Printf("open thread %s -> %s failed: %v", from, to, err)
					return
				}
				mu.Lock()
				threadIDs[i][id] = struct{}{}
				mu.Unlock()
			}(i, from, to)
		}
	}
	wg.Wait()
	took := time.Since(start)

	duplicated := 0
	for i, ids := range threadIDs {
		if len(ids) > 1 {
			duplicated++
			fmt.Printf("用户对 %s/%s 出现 %d 个会话\n", users[i][0], users[i][1], len(ids))
		}
	}

	fmt.Println("\n=== 测试结果 ===")
	fmt.Printf("耗时: %v\n", took)
	fmt.Printf("总请求: %d 成功: %d 失败: %d\n", stats.TotalRequests, stats.SuccessfulRequests, stats.FailedRequests)
	fmt.Printf("延迟 p50: %v p95: %v max: %v\n", stats.Percentile(50), stats.Percentile(95), stats.Percentile(100))
	if took > 0 {
		fmt.Printf("QPS: %.2f\n", float64(stats.SuccessfulRequests)/took.Seconds())
	}
	fmt.Printf("重复会话的用户对: %d/%d\n", duplicated, len(users))
	if duplicated > 0 {
		log.Fatal("thread dedup violated")
	}
}
