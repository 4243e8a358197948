package videos

import "github.com/guille1999utp/bemaster-part-2/internal/models"

// CanView reports whether caller may see v. An empty caller is anonymous and
// never matches an owner.
func CanView(v models.Video, caller string) bool {
	return v.IsPublic() || isOwner(v, caller)
}

// CanMutate reports whether caller may edit or delete v.
func CanMutate(v models.Video, caller string) bool {
	return isOwner(v, caller)
}

func isOwner(v models.Video, caller string) bool {
	return caller != "" && v.OwnerID == caller
}

// CheckView returns ErrVideoNotFound for a nil video and ErrForbidden when
// caller may not see it.
func CheckView(v *models.Video, caller string) error {
	if v == nil {
		return ErrVideoNotFound
	}
	if !CanView(*v, caller) {
		return ErrForbidden
	}
	return nil
}

// CheckMutate is CheckView for edits and deletes.
func CheckMutate(v *models.Video, caller string) error {
	if v == nil {
		return ErrVideoNotFound
	}
	if !CanMutate(*v, caller) {
		return ErrForbidden
	}
	return nil
}

// CheckLike requires view access and rejects a second like by the same caller.
func CheckLike(v *models.Video, caller string) error {
	if err := CheckView(v, caller); err != nil {
		return err
	}
	if v.Likers.Has(caller) {
		return ErrAlreadyLiked
	}
	return nil
}

// CheckComment requires view access.
func CheckComment(v *models.Video, caller string) error {
	return CheckView(v, caller)
}
