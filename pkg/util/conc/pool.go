// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package conc

import (
	ants "github.com/panjf2000/ants/v2"
)

// Pool 是对 ants.Pool 的轻量封装。
//
// 说明：
//   - 统一通过 PoolOption 配置 ants 行为（panic 处理、预分配、worker 过期清理等）；
//   - Submit 的语义与 ants 保持一致：阻塞模式下池满会阻塞调用方，
//     非阻塞模式下池满直接返回 ants.ErrPoolOverload。
type Pool struct {
	inner *ants.Pool

	// preHandler 在每个任务执行前被调用，可为 nil。
	preHandler func()
}

// NewPool 创建一个容量为 cap 的协程池。
func NewPool(cap int, opts ...PoolOption) (*Pool, error) {
	opt := defaultPoolOption()
	for _, o := range opts {
		o(opt)
	}

	pool, err := ants.NewPool(cap, opt.antsOptions()...)
	if err != nil {
		return nil, err
	}

	return &Pool{inner: pool, preHandler: opt.preHandler}, nil
}

// Submit 将任务提交到协程池中执行。
func (p *Pool) Submit(task func()) error {
	if p.preHandler != nil {
		pre := p.preHandler
		inner := task
		task = func() {
			pre()
			inner()
		}
	}
	return p.inner.Submit(task)
}

// Running 返回当前正在执行任务的 worker 数量。
func (p *Pool) Running() int {
	return p.inner.Running()
}

// Free 返回当前空闲的 worker 数量。
func (p *Pool) Free() int {
	return p.inner.Free()
}

// Release 关闭协程池并回收所有 worker。
func (p *Pool) Release() {
	p.inner.Release()
}
