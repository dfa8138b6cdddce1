package kernel

import "strings"

type UserID string

func NewUserID(id string) UserID { return UserID(id) }
func (u UserID) String() string  { return string(u) }
func (u UserID) IsEmpty() bool   { return strings.TrimSpace(string(u)) == "" }

type TenantID string

func NewTenantID(id string) TenantID { return TenantID(strings.TrimSpace(id)) }
func (t TenantID) String() string    { return string(t) }
func (t TenantID) IsEmpty() bool     { return strings.TrimSpace(string(t)) == "" }
