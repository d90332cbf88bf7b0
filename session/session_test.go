// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package session

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLocks_SerializesSameConversation(t *testing.T) {
	l := NewLocks()
	var active int32
	var sawOverlap bool
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.WithLock("conv-1", func() {
				n := atomic.AddInt32(&active, 1)
				if n > 1 {
					mu.Lock()
					sawOverlap = true
					mu.Unlock()
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt32(&active, -1)
			})
		}()
	}
	wg.Wait()

	assert.False(t, sawOverlap, "turns for the same conversation must never overlap")
}

func TestLocks_DistinctConversationsRunConcurrently(t *testing.T) {
	l := NewLocks()
	start := make(chan struct{})
	var wg sync.WaitGroup
	var maxActive, active int32

	for i := 0; i < 4; i++ {
		id := []string{"a", "b", "c", "d"}[i]
		wg.Add(1)
		go func(conversationID string) {
			defer wg.Done()
			<-start
			l.WithLock(conversationID, func() {
				n := atomic.AddInt32(&active, 1)
				for {
					cur := atomic.LoadInt32(&maxActive)
					if n <= cur || atomic.CompareAndSwapInt32(&maxActive, cur, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&active, -1)
			})
		}(id)
	}

	close(start)
	wg.Wait()

	assert.Greater(t, maxActive, int32(1), "distinct conversations should run concurrently")
}

func TestLocks_ForReturnsSameMutexForSameID(t *testing.T) {
	l := NewLocks()
	a := l.For("x")
	b := l.For("x")
	assert.Same(t, a, b)
}
