package survey

import (
	"strings"
	"testing"
)

func TestParseResult_YAMLAndJSON(t *testing.T) {
	yamlIn := []byte("needReferences: true\nopenEndedAnswer: build a tide sensor\nchosenQuestions:\n  - surveyIndex: 0\n    surveyTitle: Field\n    id: q1\n    question: Which field interests you?\n")
	jsonIn := []byte(`{"needReferences":true,"openEndedAnswer":"build a tide sensor","chosenQuestions":[{"surveyIndex":0,"surveyTitle":"Field","id":"q1","question":"Which field interests you?"}]}`)

	for _, in := range [][]byte{yamlIn, jsonIn} {
		r, err := ParseResult(in)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if !r.NeedReferences || r.OpenEndedAnswer != "build a tide sensor" {
			t.Fatalf("unexpected result: %+v", r)
		}
		if len(r.ChosenQuestions) != 1 || r.ChosenQuestions[0].ID != "q1" {
			t.Fatalf("unexpected questions: %+v", r.ChosenQuestions)
		}
	}
}

func TestParseResult_Invalid(t *testing.T) {
	if _, err := ParseResult([]byte("{not valid")); err == nil {
		t.Fatal("expected error for invalid input")
	}
}

func TestResult_Empty(t *testing.T) {
	if !(Result{}).Empty() {
		t.Fatal("zero result should be empty")
	}
	if (Result{OpenEndedAnswer: "x"}).Empty() {
		t.Fatal("open-ended answer should make the result non-empty")
	}
	if (Result{ChosenQuestions: []Answer{{ID: "q1"}}}).Empty() {
		t.Fatal("chosen questions should make the result non-empty")
	}
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	r := Result{
		NeedReferences:  true,
		OpenEndedAnswer: "test",
		ChosenQuestions: []Answer{{ID: "q1", Question: "Describe your idea", SurveyTitle: "Intro"}},
	}
	a := BuildPrompt(r, nil)
	b := BuildPrompt(r, nil)
	if a != b {
		t.Fatal("prompt construction must be deterministic")
	}
	if !strings.Contains(a, "Describe your idea") || !strings.Contains(a, "[Intro]") {
		t.Fatalf("prompt missing survey content:\n%s", a)
	}
	if !strings.Contains(a, "references") {
		t.Fatalf("prompt missing references instruction:\n%s", a)
	}
}

func TestBuildPrompt_FollowUpsReplayedInOrder(t *testing.T) {
	r := Result{OpenEndedAnswer: "test"}
	p := BuildPrompt(r, []string{"angle A", "angle B"})
	ia := strings.Index(p, "angle A")
	ib := strings.Index(p, "angle B")
	if ia < 0 || ib < 0 {
		t.Fatalf("follow-ups missing from prompt:\n%s", p)
	}
	if ia > ib {
		t.Fatal("follow-ups must appear in append order")
	}
}

func TestBuildPrompt_ReferencesOptional(t *testing.T) {
	p := BuildPrompt(Result{OpenEndedAnswer: "test"}, nil)
	if !strings.Contains(p, "references array may be empty") {
		t.Fatalf("expected relaxed references instruction:\n%s", p)
	}
}
