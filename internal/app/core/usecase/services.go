package usecase

// Services 對外介面 (gRPC / HTTP) 需要的 use case 集合
type Services struct {
	Auth          *AuthUseCase
	Core          *CoreUseCase
	Directory     *DirectoryUseCase
	History       *HistoryUseCase
	Notifications *NotificationUseCase
}
