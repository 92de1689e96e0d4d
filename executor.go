/*
 *
 * Copyright 2020-present Arpabet, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package beans

import (
	"context"

	"golang.org/x/sync/semaphore"
)

/**
@author Alex Shvid
*/

/**
Executor runs notifications of asynchronous observers
*/
type Executor interface {
	Submit(task func())
}

/**
Runs each task on its own goroutine
*/
type GoExecutor struct{}

func (GoExecutor) Submit(task func()) {
	go task()
}

/**
Runs at most n tasks at the same time, the rest wait for a free slot
*/
type PoolExecutor struct {
	sem *semaphore.Weighted
}

func NewPoolExecutor(n int) *PoolExecutor {
	if n < 1 {
		n = 1
	}
	return &PoolExecutor{sem: semaphore.NewWeighted(int64(n))}
}

func (t *PoolExecutor) Submit(task func()) {
	go func() {
		// background context never fails Acquire
		_ = t.sem.Acquire(context.Background(), 1)
		defer t.sem.Release(1)
		task()
	}()
}
