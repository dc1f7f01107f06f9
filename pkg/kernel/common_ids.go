package kernel

import "github.com/google/uuid"

type UserID string

func NewUserID() UserID         { return UserID(uuid.NewString()) }
func (u UserID) String() string { return string(u) }
func (u UserID) IsEmpty() bool  { return string(u) == "" }

type CompanyID string

func NewCompanyID() CompanyID      { return CompanyID(uuid.NewString()) }
func (c CompanyID) String() string { return string(c) }
func (c CompanyID) IsEmpty() bool  { return string(c) == "" }

// ExternalID is the identity provider subject ("auth0|abc", "linkedin|xyz").
type ExternalID string

func (e ExternalID) String() string { return string(e) }
func (e ExternalID) IsEmpty() bool  { return string(e) == "" }
