package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// generic semantic codes
	SemaInfo  Code = 3000
	SemaError Code = 3001

	// overload resolution
	SemaOverloadAmbiguity Code = 3101
	// implementation by delegation
	SemaManyImplMemberNotImplemented Code = 3102
	// constructor consistency
	SemaDangerousThisInConstructor                Code = 3103
	SemaDangerousThisInOpenClassConstructor       Code = 3104
	SemaDangerousMethodCallInConstructor          Code = 3105
	SemaDangerousMethodCallInOpenClassConstructor Code = 3106
	SemaDangerousOpenPropertyAccess               Code = 3107
	// declaration conflicts
	SemaConflictingOverloads Code = 3108
	SemaRedeclaration        Code = 3109
	// smart casts
	SemaUnreachableProbe Code = 3110

	// fixture input
	IOLoadFileError      Code = 4001
	IOFixtureSyntax      Code = 4002
	IOFixtureUnknownName Code = 4003
	IOFixtureInvalid     Code = 4004
	IOFixtureDuplicate   Code = 4005

	ObsInfo    Code = 6000
	ObsTimings Code = 6001
)

var (
	codeDescription = map[Code]string{
		UnknownCode:                                   "Unknown error",
		SemaInfo:                                      "Semantic information",
		SemaError:                                     "Semantic error",
		SemaOverloadAmbiguity:                         "overload resolution ambiguity",
		SemaManyImplMemberNotImplemented:              "multiple inherited implementations, none selected",
		SemaDangerousThisInConstructor:                "leaking 'this' before full initialization",
		SemaDangerousThisInOpenClassConstructor:       "leaking 'this' in open class constructor",
		SemaDangerousMethodCallInConstructor:          "member call before full initialization",
		SemaDangerousMethodCallInOpenClassConstructor: "member call in open class constructor",
		SemaDangerousOpenPropertyAccess:               "open property accessed in constructor",
		SemaConflictingOverloads:                      "conflicting overloads",
		SemaRedeclaration:                             "redeclaration",
		SemaUnreachableProbe:                          "probe is unreachable",
		IOLoadFileError:                               "I/O load file error",
		IOFixtureSyntax:                               "malformed fixture",
		IOFixtureUnknownName:                          "unknown name in fixture",
		IOFixtureInvalid:                              "invalid fixture entry",
		IOFixtureDuplicate:                            "duplicate fixture entry",
		ObsInfo:                                       "Observability information",
		ObsTimings:                                    "Pipeline timings",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
