package datastructure

import (
	"testing"
)

func TestMinHeapOrdering(t *testing.T) {
	pq := NewFourAryHeap[Index]()

	ranks := []float64{7, 3, 9, 1, 5, 2, 8}
	for i, r := range ranks {
		pq.Insert(NewPriorityQueueNode(r, Index(i), Index(i)))
	}

	prev := -1.0
	for !pq.IsEmpty() {
		node, err := pq.ExtractMin()
		if err != nil {
			t.Fatalf("extract: %v", err)
		}
		if node.GetRank() < prev {
			t.Fatalf("heap order violated: %v after %v", node.GetRank(), prev)
		}
		prev = node.GetRank()
	}
}

func TestMinHeapTieBreaksOnSmallerId(t *testing.T) {
	pq := NewFourAryHeap[Index]()

	pq.Insert(NewPriorityQueueNode(5, 9, Index(9)))
	pq.Insert(NewPriorityQueueNode(5, 2, Index(2)))
	pq.Insert(NewPriorityQueueNode(5, 7, Index(7)))

	want := []Index{2, 7, 9}
	for _, w := range want {
		node, err := pq.ExtractMin()
		if err != nil {
			t.Fatalf("extract: %v", err)
		}
		if node.GetItem() != w {
			t.Errorf("tie break order: got %d, want %d", node.GetItem(), w)
		}
	}
}

func TestMinHeapDecreaseKey(t *testing.T) {
	pq := NewFourAryHeap[Index]()

	a := NewPriorityQueueNode(10.0, 0, Index(0))
	b := NewPriorityQueueNode(20.0, 1, Index(1))
	pq.Insert(a)
	pq.Insert(b)

	if err := pq.DecreaseKey(b, 5); err != nil {
		t.Fatalf("decrease key: %v", err)
	}

	node, _ := pq.ExtractMin()
	if node.GetItem() != 1 {
		t.Errorf("after decrease key, min item = %d, want 1", node.GetItem())
	}

	if err := pq.DecreaseKey(a, 100); err == nil {
		t.Error("increasing rank through DecreaseKey accepted")
	}
}
