package validate

import "testing"

type lessonUp struct {
	Title string `json:"title" validate:"required,max=5"`
}

func TestCheck(t *testing.T) {
	if err := Check(lessonUp{Title: "ok"}); err != nil {
		t.Fatalf("expected valid value, got %v", err)
	}

	err := Check(lessonUp{})
	if err == nil || err.Error() != "Title is a required field" {
		t.Fatalf("expected required field error, got %v", err)
	}

	if err := CheckLang(lessonUp{}, "id"); err == nil || err.Error() == "Title is a required field" {
		t.Fatalf("expected indonesian error, got %v", err)
	}
}

func TestCheckID(t *testing.T) {
	if err := CheckID(GenerateID()); err != nil {
		t.Fatalf("generated id rejected: %v", err)
	}
	if err := CheckID("not-a-uuid"); err == nil {
		t.Fatal("expected malformed id to be rejected")
	}
}
