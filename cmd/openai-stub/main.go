package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// The stub answers the structured-report contract offline so the pipeline can
// be exercised end to end without a real model endpoint. The response is
// deliberately fenced and carries a trailing comma to exercise sanitization.
func main() {
	model := os.Getenv("MODEL_ID")
	if strings.TrimSpace(model) == "" {
		model = "test-model"
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8081"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"id": model, "object": "model"}},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		sys := ""
		if len(req.Messages) > 0 {
			sys = strings.TrimSpace(req.Messages[0].Content)
		}
		if !strings.Contains(sys, "capstone project advisor") {
			http.Error(w, "unexpected system", http.StatusBadRequest)
			return
		}
		user := ""
		if len(req.Messages) >= 2 {
			user = req.Messages[1].Content
		}
		doc := map[string]any{
			"title":   "Stubbed Capstone Report",
			"summary": "Deterministic report produced by the offline stub.",
			"themes": []map[string]any{
				{"name": "Offline testing", "explanation": "Generated without a live model."},
			},
			"projectIdeas": []map[string]any{
				{
					"name":            "Pipeline smoke test",
					"goal":            "Exercise the full generation round",
					"potentialImpact": "Confidence in the wiring",
					"nextSteps":       []string{"Run with the stub", "Inspect the artifact"},
				},
			},
			"references": []map[string]any{},
			"risks":      []string{"Stub output never varies"},
		}
		if strings.Contains(user, "references") {
			doc["references"] = []map[string]any{
				{"type": "website", "source": "Example Reference", "url": "https://example.com/ref"},
			}
		}
		b, _ := json.Marshal(doc)
		// Fence plus a trailing comma before the closing brace: the client
		// must sanitize both away.
		body := string(b)
		body = strings.TrimSuffix(body, "}") + ",}"
		content := "```json\n" + body + "\n```"
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	})

	log.Printf("openai-stub listening on %s (model=%s)", addr, model)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}
