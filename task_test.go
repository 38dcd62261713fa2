package worksteal

import (
	"sync"
	"testing"
)

func TestTask_NewTask(t *testing.T) {
	task := NewTask(func(*Worker, any) {}, "payload")

	if task.Done() {
		t.Error("fresh task reports done")
	}
	if task.Finished() {
		t.Error("fresh task reports finished")
	}
	if task.Parent() != nil {
		t.Error("fresh task has a parent")
	}
	if task.Data() != "payload" {
		t.Errorf("expected data %q, got %v", "payload", task.Data())
	}
}

func TestTask_CompletionNoChildren(t *testing.T) {
	task := newIdleTask()

	task.done.Store(true)
	task.release()

	if !task.Done() {
		t.Error("task with returned payload and no children not done")
	}
	if !task.Finished() {
		t.Error("task not finished after payload return")
	}
}

func TestTask_ParentWaitsOnChildren(t *testing.T) {
	parent := newIdleTask()
	child := newIdleTask()

	parent.addChild(child)
	if child.Parent() != parent {
		t.Fatal("child not linked to parent")
	}

	// parent's payload returns first
	parent.done.Store(true)
	parent.release()
	if parent.Done() {
		t.Fatal("parent done while child still live")
	}

	child.done.Store(true)
	child.release()
	if !child.Done() {
		t.Fatal("child not done")
	}
	if !parent.Done() {
		t.Fatal("parent not done after last child completed")
	}
}

func TestTask_CascadeToGrandparent(t *testing.T) {
	grand := newIdleTask()
	parent := newIdleTask()
	child := newIdleTask()

	grand.addChild(parent)
	parent.addChild(child)

	grand.done.Store(true)
	grand.release()
	parent.done.Store(true)
	parent.release()

	if parent.Done() || grand.Done() {
		t.Fatal("ancestors done before leaf completed")
	}

	child.done.Store(true)
	child.release()

	if !parent.Done() {
		t.Error("parent not done after leaf completed")
	}
	if !grand.Done() {
		t.Error("grandparent not done after cascade")
	}
}

func TestTask_UnlinkChildRollsBack(t *testing.T) {
	parent := newIdleTask()
	child := newIdleTask()

	parent.addChild(child)
	parent.unlinkChild(child)

	if child.Parent() != nil {
		t.Error("child still linked after rollback")
	}

	parent.done.Store(true)
	parent.release()
	if !parent.Done() {
		t.Error("parent not done after rollback and payload return")
	}
}

// The counter must stay non-negative however the payload return and the
// child completions interleave, and the parent must complete exactly
// once.
func TestTask_ConcurrentCompletion(t *testing.T) {
	const children = 64

	for round := 0; round < 200; round++ {
		parent := newIdleTask()
		kids := make([]*Task, children)
		for i := range kids {
			kids[i] = newIdleTask()
			parent.addChild(kids[i])
		}

		var wg sync.WaitGroup
		for _, kid := range kids {
			wg.Add(1)
			go func(k *Task) {
				defer wg.Done()
				k.done.Store(true)
				k.release()
			}(kid)
		}

		// payload return races the children
		parent.done.Store(true)
		parent.release()
		wg.Wait()

		if got := parent.pending.Load(); got != 0 {
			t.Fatalf("round %d: pending = %d after completion", round, got)
		}
		if !parent.Done() {
			t.Fatalf("round %d: parent not done", round)
		}
		for i, kid := range kids {
			if !kid.Done() {
				t.Fatalf("round %d: child %d not done while parent done", round, i)
			}
		}
	}
}
