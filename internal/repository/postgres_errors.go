package repository

import (
	"errors"

	"github.com/lib/pq"
)

// uniqueViolation はPostgreSQLの一意制約違反のエラーコード。
const uniqueViolation = "23505"

// constraintErrors は制約名と対応するエラーの対応表。
var constraintErrors = map[string]error{
	"profiles_username_lower_key":  ErrUsernameTaken,
	"profiles_email_key":           ErrEmailTaken,
	"identities_provider_user_key": ErrIdentityTaken,
}

// mapConstraintError は一意制約違反を対応するエラーに変換する。
// 該当しない場合は元のエラーをそのまま返す。
func mapConstraintError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return err
	}
	if mapped, ok := constraintErrors[pqErr.Constraint]; ok {
		return mapped
	}
	return err
}
