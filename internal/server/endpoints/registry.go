package endpoints

import (
	"github.com/jackzampolin/wikibook/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{},

		// API documentation
		&SwaggerEndpoint{},
		&SwaggerUIEndpoint{},

		// Auth endpoints
		&LoginEndpoint{},
		&RegisterEndpoint{},
		&GoogleLoginEndpoint{},
		&SessionEndpoint{},
		&LogoutEndpoint{},
		&ProfileEndpoint{},
		&UpdateProfileEndpoint{},
		&ChangePasswordEndpoint{},
		&DeleteAccountEndpoint{},
		&ForgotPasswordEndpoint{},
		&ResetPasswordEndpoint{},

		// Wiki search endpoints
		&SearchEndpoint{},
		&SearchTitlesEndpoint{},
		&SearchCategoriesEndpoint{},
		&CategoryPagesEndpoint{},

		// Book job endpoints
		&CreateJobEndpoint{},
		&ListJobsEndpoint{},
		&GetJobEndpoint{},
		&CancelJobEndpoint{},
		&JobEventsEndpoint{},

		// Library endpoints
		&ListBooksEndpoint{},
		&GetBookEndpoint{},
		&DeleteBookEndpoint{},
		&DownloadBookEndpoint{},

		// Local preview endpoints
		&PreviewEndpoint{},
		&PreviewFileEndpoint{},

		// Settings endpoints
		&ListSettingsEndpoint{},
		&GetSettingEndpoint{},
		&UpdateSettingEndpoint{},
		&ResetSettingEndpoint{},
	}
}

// HealthCommands returns the endpoints exposed directly under "api".
func HealthCommands() []api.Endpoint {
	return []api.Endpoint{
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{},
		&SwaggerEndpoint{},
		&SwaggerUIEndpoint{},
	}
}

// AuthCommands returns endpoints for session operations.
// This groups auth-related commands under "auth" subcommand.
func AuthCommands() []api.Endpoint {
	return []api.Endpoint{
		&LoginEndpoint{},
		&RegisterEndpoint{},
		&GoogleLoginEndpoint{},
		&SessionEndpoint{},
		&LogoutEndpoint{},
		&ProfileEndpoint{},
		&UpdateProfileEndpoint{},
		&ChangePasswordEndpoint{},
		&DeleteAccountEndpoint{},
		&ForgotPasswordEndpoint{},
		&ResetPasswordEndpoint{},
	}
}

// SearchCommands returns endpoints for wiki search.
// This groups search-related commands under "search" subcommand.
func SearchCommands() []api.Endpoint {
	return []api.Endpoint{
		&SearchEndpoint{},
		&SearchTitlesEndpoint{},
		&SearchCategoriesEndpoint{},
		&CategoryPagesEndpoint{},
	}
}

// JobCommands returns endpoints for book job operations.
// This groups job-related commands under "jobs" subcommand.
func JobCommands() []api.Endpoint {
	return []api.Endpoint{
		&CreateJobEndpoint{},
		&ListJobsEndpoint{},
		&GetJobEndpoint{},
		&CancelJobEndpoint{},
		&JobEventsEndpoint{},
	}
}

// BookCommands returns endpoints for the remote library.
// This groups book-related commands under "books" subcommand.
func BookCommands() []api.Endpoint {
	return []api.Endpoint{
		&ListBooksEndpoint{},
		&GetBookEndpoint{},
		&DeleteBookEndpoint{},
		&DownloadBookEndpoint{},
		&PreviewEndpoint{},
		&PreviewFileEndpoint{},
	}
}

// SettingsCommands returns endpoints for settings operations.
// This groups settings-related commands under "settings" subcommand.
func SettingsCommands() []api.Endpoint {
	return []api.Endpoint{
		&ListSettingsEndpoint{},
		&GetSettingEndpoint{},
		&UpdateSettingEndpoint{},
		&ResetSettingEndpoint{},
	}
}
