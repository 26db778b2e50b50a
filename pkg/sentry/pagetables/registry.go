// Copyright 2025 The gVisor Authors.
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

package pagetables

import (
	"fmt"
	"sync"

	"gokern.dev/gokern/pkg/hostarch"
)

// Registry maps tokens to the page tables they name. It is the kernel-wide
// view used to translate addresses of any address space.
type Registry struct {
	mu sync.RWMutex

	// +checklocks:mu
	tables map[Token]*PageTables
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tables: make(map[Token]*PageTables)}
}

// Register makes p reachable through its token.
func (r *Registry) Register(p *PageTables) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token := p.Token()
	if _, ok := r.tables[token]; ok {
		panic(fmt.Sprintf("page tables with token %v registered twice", token))
	}
	r.tables[token] = p
}

// Unregister removes the page tables named by token.
func (r *Registry) Unregister(token Token) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tables, token)
}

// Get returns the page tables named by token.
func (r *Registry) Get(token Token) (*PageTables, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.tables[token]
	return p, ok
}

// FindMapping returns the entry mapping vpn in the address space named by
// token. ok is false if the token names no page tables or vpn is unmapped.
func (r *Registry) FindMapping(token Token, vpn hostarch.VPN) (pte PTE, ok bool) {
	p, ok := r.Get(token)
	if !ok {
		return 0, false
	}
	return p.Lookup(vpn)
}
