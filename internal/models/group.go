// Copyright (c) 2026 John Earle
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

package models

// Group identifies one report section. The set is closed: the engine only
// ever assigns one of the constants below, and the renderer iterates them
// in ReportOrder.
type Group string

const (
	GroupHighPriority    Group = "high_priority"
	GroupCustomersTeam   Group = "customers_team"
	GroupCustomersDirect Group = "customers_direct"
	GroupInternal        Group = "internal"
	GroupOverdueMonth    Group = "overdue_month"
)

// ReportOrder is the section order used by the renderer.
var ReportOrder = []Group{
	GroupHighPriority,
	GroupCustomersTeam,
	GroupCustomersDirect,
	GroupInternal,
	GroupOverdueMonth,
}

// Valid reports whether g is one of the known group identifiers.
func (g Group) Valid() bool {
	switch g {
	case GroupHighPriority, GroupCustomersTeam, GroupCustomersDirect,
		GroupInternal, GroupOverdueMonth:
		return true
	}
	return false
}

// Label returns the default section heading for a group. Team-mapped
// messages carry their own display label on the message itself.
func (g Group) Label() string {
	switch g {
	case GroupHighPriority:
		return "High Priority"
	case GroupCustomersTeam:
		return "Team Customers"
	case GroupCustomersDirect:
		return "Direct Customers"
	case GroupInternal:
		return "Internal"
	case GroupOverdueMonth:
		return "Overdue (30+ days)"
	default:
		return string(g)
	}
}
